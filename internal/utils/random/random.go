package random

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	UpperAlphaNumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AlphaNumeric      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Source draws values from a cryptographically secure reader.
type Source struct {
	reader io.Reader
}

// Default reads from crypto/rand.
var Default = NewSource(rand.Reader)

func NewSource(r io.Reader) *Source {
	return &Source{reader: r}
}

// Intn returns a uniform integer in [0, n).
func (s *Source) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid bound: %d", n)
	}
	v, err := rand.Int(s.reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

// Float64Open returns a uniform float in the open interval (0, 1).
func (s *Source) Float64Open() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(s.reader, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	// 52 бита, чтобы x+0.5 был точно представим; сдвиг на полшага исключает 0 и 1
	x := binary.BigEndian.Uint64(buf[:]) >> 12
	return (float64(x) + 0.5) / (1 << 52), nil
}

// String returns length characters drawn uniformly from alphabet.
func (s *Source) String(alphabet string, length int) (string, error) {
	if alphabet == "" {
		return "", errors.New("empty alphabet")
	}
	out := make([]byte, length)
	for i := range out {
		idx, err := s.Intn(len(alphabet))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx]
	}
	return string(out), nil
}

// Sample moves k uniformly chosen elements of slice to its front using a
// partial Fisher-Yates pass and returns that prefix. The slice is modified.
func Sample[T any](s *Source, slice []T, k int) ([]T, error) {
	n := len(slice)
	if k > n {
		k = n
	}
	for i := 0; i < k; i++ {
		j, err := s.Intn(n - i)
		if err != nil {
			return nil, err
		}
		j += i
		slice[i], slice[j] = slice[j], slice[i]
	}
	return slice[:k], nil
}

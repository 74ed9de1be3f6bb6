package service

import "time"

const (
	// Общие константы для обработки розыгрышей
	MaxConcurrentProcessing = 10               // Максимальное количество одновременно обрабатываемых розыгрышей
	ProcessingTimeout       = 2 * time.Minute  // Таймаут для обработки одного розыгрыша
	LockTimeout             = 30 * time.Second // Время удержания блокировки розыгрыша
	MaxRetries              = 3                // Максимальное количество попыток обработки
	RetryDelay              = 5 * time.Second  // Задержка между попытками
	NotificationTimeout     = 10 * time.Second

	// Повторы вставки участника при гонке за один и тот же код билета
	MaxTicketInsertAttempts = 3
)

// ParticipationSettings tunes the join and bonus coordination locks.
type ParticipationSettings struct {
	LockWait        time.Duration
	LockTTL         time.Duration
	CaptchaTTL      time.Duration
	ReferralLinkTTL time.Duration
}

// DrawSettings holds cron specs for the background jobs.
type DrawSettings struct {
	Schedule        string
	CleanupSchedule string
}

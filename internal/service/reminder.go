package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// renewalNoticePeriod определяет, за сколько до истечения членства
	// отправляется напоминание о продлении.
	renewalNoticePeriod = 90 * 24 * time.Hour
	// reminderRepeatAfter определяет минимальный интервал между повторными
	// напоминаниями одному участнику.
	reminderRepeatAfter = 14 * 24 * time.Hour
	// reminderCheckInterval определяет период фоновой проверки истекающих членств.
	reminderCheckInterval = 24 * time.Hour

	reminderBatchSize = 100
)

// StartRenewalReminders запускает фоновый процесс рассылки напоминаний о
// продлении членства. Процесс останавливается при отмене контекста.
func (s *Service) StartRenewalReminders(ctx context.Context) {
	if s.mailer == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(reminderCheckInterval)
		defer ticker.Stop()

		s.processReminderBatch(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processReminderBatch(ctx)
			}
		}
	}()
}

// processReminderBatch находит участников с истекающим членством, присваивает
// каждому хеш продления и отправляет письмо со ссылкой на продление.
func (s *Service) processReminderBatch(ctx context.Context) {
	now := time.Now()
	members, err := s.repo.ListExpiring(ctx, now.Add(renewalNoticePeriod), now.Add(-reminderRepeatAfter), reminderBatchSize)
	if err != nil {
		s.logger.Error("failed to list expiring memberships", zap.Error(err))
		return
	}

	for i := range members {
		member := &members[i]

		hash := uuid.NewString()
		if err := s.repo.AssignRenewalHash(ctx, member.ID, hash); err != nil {
			s.logger.Error("failed to assign renewal hash",
				zap.Error(err), zap.String("memberID", member.ID))
			continue
		}

		member.RenewalHash = &hash
		s.notify(member, renewalEmail)
	}

	if len(members) > 0 {
		s.logger.Info("renewal reminders dispatched", zap.Int("count", len(members)))
	}
}

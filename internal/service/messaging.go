package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bbqsrc/collectiva/internal/model"
)

// notifyTimeout ограничивает время на отправку одного письма.
const notifyTimeout = 30 * time.Second

// emailKind описывает один вид уведомления участнику.
type emailKind struct {
	name    string
	subject string
	body    func(publicURL string, m *model.Member) string
}

var verificationEmail = emailKind{
	name:    "verification",
	subject: "Collectiva - Verify Your Email",
	body: func(publicURL string, m *model.Member) string {
		return fmt.Sprintf(`Hello,

Thank you for your membership application.

You're almost done! The last step is to verify your membership by clicking on the link below.

%s/members/verify/%s

Best,

The Membership Team`, publicURL, m.VerificationHash)
	},
}

var welcomeEmail = emailKind{
	name:    "welcome",
	subject: "Collectiva - Welcome",
	body: func(publicURL string, m *model.Member) string {
		return fmt.Sprintf(`Welcome aboard, %s!

Your membership is now verified and active. You can now start participating and getting involved.

Best,

The Membership Team`, m.GivenNames)
	},
}

var renewalEmail = emailKind{
	name:    "renewal",
	subject: "Collectiva - Renew Your Membership",
	body: func(publicURL string, m *model.Member) string {
		hash := ""
		if m.RenewalHash != nil {
			hash = *m.RenewalHash
		}
		return fmt.Sprintf(`Hello,

Your membership is due to expire soon. To renew it, please click on the following link:

%s/members/renew/%s

Best,

The Membership Team`, publicURL, hash)
	},
}

// notify асинхронно отправляет участнику письмо указанного вида. Сбой
// отправки логируется и никогда не влияет на породивший отправку процесс.
func (s *Service) notify(member *model.Member, kind emailKind) {
	if s.mailer == nil {
		return
	}

	m := *member
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, m.Email, kind.subject, kind.body(s.publicURL, &m)); err != nil {
			s.logger.Error("failed to send email",
				zap.Error(err), zap.String("kind", kind.name), zap.String("email", m.Email))
			return
		}

		s.logger.Info("email sent", zap.String("kind", kind.name), zap.String("email", m.Email))
	}()
}

package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"go.uber.org/zap"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	send   sendFunc
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.AnalysisJob) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	jobID := job.ID.String()
	msg := failureMessage(n.from, userEmail, jobID, job.VideoKey, job.ErrorMessage)

	if err := n.send(addr, nil, n.from, []string{userEmail}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}

func failureMessage(from, to, jobID, videoKey, errorMsg string) []byte {
	subject := fmt.Sprintf("Swing analysis failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"We could not analyze your swing video.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Reason: %s\r\n\r\n"+
			"No credit was charged for this attempt. Check that the clip shows the whole swing, "+
			"is at least 640x480 and runs between 1 and 60 seconds, then upload it again.\r\n\r\n"+
			"-- Golf Swing Analysis",
		jobID, videoKey, errorMsg,
	)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))
}

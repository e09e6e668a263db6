package sms

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

// Log is a dry-run sender for local development. It only writes the message
// to the log, codes included, so it must never run in production.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (Log) Send(ctx context.Context, phone, body string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	zap.L().Info("[dry-run] sms not sent",
		zap.String("to", phone),
		zap.String("body", body),
		zap.String("messageID", id),
	)

	return id, nil
}

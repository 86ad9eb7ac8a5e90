package api

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"taskboard-api/domain"
)

func TestSendMailDeliversThroughWorkers(t *testing.T) {
	store := newMockStore()
	logger, _ := test.NewNullLogger()
	initMailSender(store, logger)
	defer shutdownMailSender()

	for _, to := range []string{"1@example.com", "2@example.com", "3@example.com"} {
		sendMail(domain.MailMessage{To: to, Subject: "hi"})
	}

	mails := waitForMails(t, store, 3)
	seen := map[string]bool{}
	for _, msg := range mails {
		seen[msg.To] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct recipients, got %v", seen)
	}
}

func TestSendMailWithoutInitIsNoOp(t *testing.T) {
	store := newMockStore()
	// Not initialized: the message is dropped rather than panicking.
	sendMail(domain.MailMessage{To: "nobody@example.com"})
	if len(store.Mails()) != 0 {
		t.Fatal("no mail may be recorded without an initialized sender")
	}
}

func TestSendMailFallsBackInlineWhenSaturated(t *testing.T) {
	t.Setenv("MAIL_WORKERS", "1")
	t.Setenv("MAIL_BUFFER", "1")
	t.Setenv("MAIL_TIMEOUT", "100ms")

	store := newMockStore()
	gate := make(chan struct{})
	entered := make(chan struct{}, 8)
	store.mailFn = func(ctx context.Context, msg domain.MailMessage) error {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
		store.mu.Lock()
		store.mails = append(store.mails, msg)
		store.mu.Unlock()
		return nil
	}

	logger, hook := test.NewNullLogger()
	initMailSender(store, logger)
	defer shutdownMailSender()

	sendMail(domain.MailMessage{To: "1@example.com"})
	<-entered // the single worker is now blocked inside the store
	sendMail(domain.MailMessage{To: "2@example.com"}) // fills the buffer
	sendMail(domain.MailMessage{To: "3@example.com"}) // buffer full, goes inline
	<-entered // the inline enqueue reached the store and will time out

	close(gate)
	waitForMails(t, store, 2)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Fatal("expected a saturation warning")
	}
}

package api

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// The mail sender decouples request handling from queue latency: handlers
// hand messages to a buffered channel drained by a small worker pool, and
// fall back to an inline enqueue when the buffer is saturated.
var (
	mailOnce    sync.Once
	mailJobs    chan domain.MailMessage
	mailWG      sync.WaitGroup
	mailStore   Storage
	mailLog     *log.Logger
	mailTimeout time.Duration
	bg          = context.Background()
)

func initMailSender(store Storage, logger *log.Logger) {
	mailOnce.Do(func() {
		if store == nil {
			panic("storage is required")
		}
		if logger == nil {
			panic("logger is required")
		}
		mailStore = store
		mailLog = logger
		mailTimeout = envDur("MAIL_TIMEOUT", 30*time.Second)

		workers := envInt("MAIL_WORKERS", 4)
		buffer := envInt("MAIL_BUFFER", 256)
		mailJobs = make(chan domain.MailMessage, buffer)
		for i := 0; i < workers; i++ {
			mailWG.Add(1)
			go mailWorker(i, mailJobs)
		}
		mailLog.Infof("mail sender started, workers: %d, buffer: %d, timeout: %v", workers, buffer, mailTimeout)
	})
}

// shutdownMailSender stops worker goroutines and clears shared state. It is
// intended for tests.
func shutdownMailSender() {
	if mailJobs != nil {
		close(mailJobs)
		mailJobs = nil
	}
	mailWG.Wait()
	mailStore = nil
	mailLog = nil
	mailTimeout = 0
	mailOnce = sync.Once{}
	mailWG = sync.WaitGroup{}
}

// sendMail hands the message to the worker pool, enqueueing inline when the
// buffer is full. Delivery failures are logged, never surfaced: mail is
// best-effort by contract.
func sendMail(msg domain.MailMessage) {
	if mailJobs != nil {
		select {
		case mailJobs <- msg:
			return
		default:
		}
		mailLog.Warn("mail buffer saturated; enqueueing inline")
	}
	if mailStore == nil {
		return
	}

	ctx, cancel := context.WithTimeout(bg, mailTimeout)
	defer cancel()
	if err := mailStore.EnqueueMail(ctx, msg); err != nil {
		mailLog.WithFields(log.Fields{"to": msg.To, "error": err.Error()}).Error("inline mail enqueue failed")
	}
}

func mailWorker(id int, jobCh <-chan domain.MailMessage) {
	defer mailWG.Done()
	for msg := range jobCh {
		ctx, cancel := context.WithTimeout(bg, mailTimeout)
		err := mailStore.EnqueueMail(ctx, msg)
		cancel()
		if err != nil {
			mailLog.Errorf("mail enqueue failed, err: %v, to: %s, worker: %d", err, msg.To, id)
		}
	}
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDur(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

package cron

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/models"
	"github.com/meinhoongagan/wheel-refurb/utils"
)

const digestWindow = 24 * time.Hour

type PendingLister interface {
	ListPending(ctx context.Context, since time.Time) ([]models.Appointment, error)
}

type Sender interface {
	SendEmail(to, subject, body string) error
}

// Scheduler runs the periodic housekeeping jobs.
type Scheduler struct {
	c   *cron.Cron
	log *zap.Logger
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{c: cron.New(), log: log}
}

// AddDigest emails the workshop the requests received in the last day.
func (s *Scheduler) AddDigest(spec string, d *Digest) error {
	if _, err := s.c.AddFunc(spec, d.Run); err != nil {
		return fmt.Errorf("failed to add digest job: %w", err)
	}
	return nil
}

// AddReaper periodically drops abandoned form attempts.
func (s *Scheduler) AddReaper(spec string, reap func() int) error {
	_, err := s.c.AddFunc(spec, func() {
		if n := reap(); n > 0 {
			s.log.Info("Reaped abandoned attempts", zap.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add reaper job: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.c.Start()
	s.log.Info("Cron job scheduler started", zap.Int("jobs", len(s.c.Entries())))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

type Digest struct {
	records PendingLister
	mail    Sender
	to      string
	tz      string
	log     *zap.Logger
	now     func() time.Time
}

func NewDigest(records PendingLister, mail Sender, to string, log *zap.Logger) *Digest {
	return &Digest{records: records, mail: mail, to: to, log: log, now: time.Now}
}

// WithTimezone renders received times in the named zone instead of UTC.
func (d *Digest) WithTimezone(name string) *Digest {
	d.tz = name
	return d
}

func (d *Digest) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	appointments, err := d.records.ListPending(ctx, d.now().Add(-digestWindow))
	if err != nil {
		d.log.Error("Error fetching pending appointments for digest", zap.Error(err))
		return
	}
	if len(appointments) == 0 {
		d.log.Info("No new pending appointments, skipping digest")
		return
	}

	subject, body := buildDigest(appointments, d.tz)
	if err := d.mail.SendEmail(d.to, subject, body); err != nil {
		d.log.Error("Failed to send digest", zap.Error(err))
		return
	}
	d.log.Info("Sent pending digest", zap.Int("appointments", len(appointments)))
}

func buildDigest(appointments []models.Appointment, tz string) (string, string) {
	subject := fmt.Sprintf("%d new wheel refurbishment request(s)", len(appointments))

	var b strings.Builder
	b.WriteString("<p>New requests waiting for a call back:</p>\n<ul>\n")
	for _, a := range appointments {
		fmt.Fprintf(&b, "\t<li><strong>%s</strong> (%s), received %s:",
			html.EscapeString(a.CustomerName),
			html.EscapeString(a.CustomerPhone),
			utils.InLocation(a.CreatedAt, tz).Format("2006-01-02 15:04 MST"))
		for i, url := range a.ImageURLs {
			fmt.Fprintf(&b, ` <a href="%s">photo %d</a>`, html.EscapeString(url), i+1)
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")
	return subject, b.String()
}

// Package metrics exports game activity as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/event"
)

const namespace = "quizbot"

type Config struct {
	EventBus *event.Bus
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

type Collector struct {
	gamesCreated  prometheus.Counter
	gamesActive   prometheus.Gauge
	gamesEnded    *prometheus.CounterVec
	playersJoined prometheus.Counter
	answers       *prometheus.CounterVec
	questions     prometheus.Counter
}

func New(c Config) *Collector {
	reg := c.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Collector{
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_created_total",
			Help:      "Number of games created.",
		}),
		gamesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games_active",
			Help:      "Number of games being played.",
		}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Number of games torn down, by outcome.",
		}, []string{"outcome"}),
		playersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Number of players who joined a game after it was created.",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Number of recorded answers, by correctness.",
		}, []string{"correct"}),
		questions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_asked_total",
			Help:      "Number of questions presented to players.",
		}),
	}

	reg.MustRegister(m.gamesCreated, m.gamesActive, m.gamesEnded, m.playersJoined, m.answers, m.questions)

	event.Handle(c.EventBus, m.sessionCreated)
	event.Handle(c.EventBus, m.playerJoined)
	event.Handle(c.EventBus, m.sessionStarted)
	event.Handle(c.EventBus, m.questionAdvanced)
	event.Handle(c.EventBus, m.answerRecorded)
	event.Handle(c.EventBus, m.sessionRemoved)

	return m
}

func (m *Collector) sessionCreated(context.Context, domain.EventSessionCreated) error {
	m.gamesCreated.Inc()
	return nil
}

func (m *Collector) playerJoined(context.Context, domain.EventPlayerJoined) error {
	m.playersJoined.Inc()
	return nil
}

func (m *Collector) sessionStarted(context.Context, domain.EventSessionStarted) error {
	m.gamesActive.Inc()
	return nil
}

func (m *Collector) questionAdvanced(context.Context, domain.EventQuestionAdvanced) error {
	m.questions.Inc()
	return nil
}

func (m *Collector) answerRecorded(_ context.Context, e domain.EventAnswerRecorded) error {
	if e.Answer.IsCorrect {
		m.answers.WithLabelValues("true").Inc()
	} else {
		m.answers.WithLabelValues("false").Inc()
	}
	return nil
}

// sessionRemoved also covers games cancelled before they started, which were
// never counted as active.
func (m *Collector) sessionRemoved(_ context.Context, e domain.EventSessionRemoved) error {
	outcome := "finished"
	if e.Cancelled {
		outcome = "cancelled"
	}
	m.gamesEnded.WithLabelValues(outcome).Inc()

	if e.WasActive {
		m.gamesActive.Dec()
	}
	return nil
}

// Package metrics exposes Prometheus counters for the quiz workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnswersValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ecoloquiz_answers_validated_total",
		Help: "Answer submissions processed, by outcome.",
	}, []string{"outcome"})

	MilestonesCrossed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecoloquiz_milestones_crossed_total",
		Help: "Point milestones crossed by players.",
	})

	GiftsAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecoloquiz_gifts_allocated_total",
		Help: "Gifts allocated at milestones.",
	})

	GiftDrawsEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ecoloquiz_gift_draws_empty_total",
		Help: "Milestone draws that found no eligible gift.",
	})
)

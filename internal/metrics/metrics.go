package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_quiz"

// Recorder holds the game-loop collectors.
type Recorder struct {
	RoomsActive         prometheus.Gauge
	PlayersJoined       prometheus.Counter
	AnswersSubmitted    prometheus.Counter
	RoundsCompleted     prometheus.Counter
	GamesFinished       prometheus.Counter
	PersistenceFailures *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		RoomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "active",
			Help:      "Number of live rooms held by this process",
		}),
		PlayersJoined: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "players_joined_total",
			Help:      "Total number of players that joined a room",
		}),
		AnswersSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "answers_total",
			Help:      "Total number of accepted answer attempts",
		}),
		RoundsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rounds",
			Name:      "completed_total",
			Help:      "Total number of scored rounds",
		}),
		GamesFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "games",
			Name:      "finished_total",
			Help:      "Total number of games that reached the end phase",
		}),
		PersistenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persistence",
				Name:      "failures_total",
				Help:      "Failed best-effort writes by kind",
			},
			[]string{"kind"},
		),
	}
}

func (r *Recorder) RoomOpened()      { r.RoomsActive.Inc() }
func (r *Recorder) RoomClosed()      { r.RoomsActive.Dec() }
func (r *Recorder) PlayerJoined()    { r.PlayersJoined.Inc() }
func (r *Recorder) AnswerSubmitted() { r.AnswersSubmitted.Inc() }
func (r *Recorder) RoundCompleted()  { r.RoundsCompleted.Inc() }
func (r *Recorder) GameFinished()    { r.GamesFinished.Inc() }

func (r *Recorder) PersistenceFailed(kind string) {
	r.PersistenceFailures.WithLabelValues(kind).Inc()
}

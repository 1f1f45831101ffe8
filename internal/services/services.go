package services

import (
	"time"

	"github.com/gravadigital/urna-api/internal/archive"
	"github.com/gravadigital/urna-api/internal/metrics"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/policy"
	"github.com/gravadigital/urna-api/internal/storage/repository"
)

// Dependencies agrupa lo que comparten los servicios
type Dependencies struct {
	Store    *repository.Container
	Policy   *policy.Evaluator
	Notifier *notify.Notifier
	Archiver archive.Archiver
	Metrics  *metrics.MetricService
	// Now defaults to time.Now; tests pin it
	Now func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Policy == nil {
		d.Policy = policy.NewEvaluator(d.Metrics)
	}
	if d.Archiver == nil {
		d.Archiver = archive.Noop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Services es el conjunto de servicios usado por los handlers
type Services struct {
	Voting    *VotingService
	Elections *ElectionService
}

// New crea todos los servicios sobre las mismas dependencias
func New(deps Dependencies) *Services {
	deps = deps.withDefaults()
	return &Services{
		Voting:    NewVotingService(deps),
		Elections: NewElectionService(deps),
	}
}

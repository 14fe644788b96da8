package app

import (
	"fmt"

	jobrt "github.com/yungbote/burstreply-backend/internal/jobs/runtime"
	"github.com/yungbote/burstreply-backend/internal/jobs/worker"
	"github.com/yungbote/burstreply-backend/internal/modules/grouping"
	"github.com/yungbote/burstreply-backend/internal/platform/clock"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
	"github.com/yungbote/burstreply-backend/internal/services"
	"github.com/yungbote/burstreply-backend/internal/temporalx/delayedjob"
)

type Services struct {
	Registry     *jobrt.Registry
	Scheduler    jobrt.Scheduler
	SchedulerBy  string
	LocalWorker  *worker.Worker
	Coordinator  *grouping.Coordinator
	Conversation services.ConversationService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	registry := jobrt.NewRegistry()
	scheduler, by, local, err := selectScheduler(log, cfg, clients, registry)
	if err != nil {
		return Services{}, err
	}

	coord, err := grouping.New(grouping.Deps{
		Log:           log,
		Store:         clients.Store,
		Scheduler:     scheduler,
		Conversations: reposet.Conversation,
		Messages:      reposet.Message,
		Clock:         clock.System(),
		Config:        cfg.Grouping,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init grouping coordinator: %w", err)
	}
	if err := registry.Register(coord.AggregationJob()); err != nil {
		return Services{}, fmt.Errorf("register aggregation job: %w", err)
	}

	return Services{
		Registry:     registry,
		Scheduler:    scheduler,
		SchedulerBy:  by,
		LocalWorker:  local,
		Coordinator:  coord,
		Conversation: services.NewConversationService(log, reposet.Conversation, reposet.Message, coord),
	}, nil
}

// selectScheduler resolves SCHEDULER against what is actually reachable. auto prefers
// Temporal and falls back to the in-process worker.
func selectScheduler(log *logger.Logger, cfg Config, clients Clients, registry *jobrt.Registry) (jobrt.Scheduler, string, *worker.Worker, error) {
	useTemporal := false
	switch cfg.Scheduler {
	case SchedulerTemporal:
		if clients.Temporal == nil {
			return nil, "", nil, fmt.Errorf("SCHEDULER=temporal but no temporal client")
		}
		useTemporal = true
	case SchedulerAuto:
		useTemporal = clients.Temporal != nil
	}

	if useTemporal {
		s, err := delayedjob.NewScheduler(log, clients.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return nil, "", nil, err
		}
		if clients.Memory != nil {
			log.Warn("Temporal scheduler with in-memory store: aggregation must run in this process")
		}
		log.Info("Delayed jobs scheduled via Temporal", "task_queue", cfg.Temporal.TaskQueue)
		return s, SchedulerTemporal, nil, nil
	}

	w := worker.NewWorker(log, registry, cfg.WorkerConcurrency, cfg.JobTimeout)
	log.Info("Delayed jobs scheduled in-process", "concurrency", cfg.WorkerConcurrency)
	return w, SchedulerLocal, w, nil
}

package migration

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
)

// JobState tracks one migration job through the pipeline.
type JobState string

const (
	StateStarted        JobState = "STARTED"
	StateSynced         JobState = "SYNCED"
	StateAssetsResolved JobState = "ASSETS_RESOLVED"
	StateFailed         JobState = "FAILED"
)

// Migrator sequences Sync and Auto-Accept for one examination. It owns the
// end-to-end logging and failure isolation of a job: a failed stage aborts
// that examination's migration and nothing else. There is no rollback and
// no automatic retry; re-submission is the retry mechanism and the upsert
// keys make re-runs safe.
type Migrator struct {
	syncer        *Syncer
	accepter      *AutoAccept
	defaultSchema string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMigrator(syncer *Syncer, accepter *AutoAccept, defaultSchema string) *Migrator {
	return &Migrator{
		syncer:        syncer,
		accepter:      accepter,
		defaultSchema: defaultSchema,
		locks:         make(map[string]*sync.Mutex),
	}
}

// Run executes the pipeline for one submission event. Two submissions for
// the same patient are serialized on a per-patient lock so their writes
// cannot interleave.
func (m *Migrator) Run(ctx context.Context, settings models.SubmissionSettings) {
	lock := m.patientLock(settings.PatientID)
	lock.Lock()
	defer lock.Unlock()

	schema := settings.Schema(m.defaultSchema)
	log := logger.Log.WithFields(logrus.Fields{
		"request_id": settings.RequestID,
		"patient_id": settings.PatientID,
		"schema":     schema,
		"org":        settings.Organization,
	})

	log.WithField("state", StateStarted).Info("Migration started")

	result, err := m.syncer.Sync(ctx, settings)
	if err != nil {
		log.WithField("state", StateFailed).WithError(err).Error("Migration failed during sync")
		return
	}
	if result == nil {
		log.Info("Migration skipped: no pending submission")
		return
	}

	log.WithFields(logrus.Fields{
		"state":   StateSynced,
		"records": len(result.Records),
	}).Info("Examination synced")

	log.WithFields(logrus.Fields{
		"state":  StateAssetsResolved,
		"assets": result.ResolvedAssets,
	}).Info("Assets resolved")

	outcome := m.accepter.Run(ctx, settings, schema)
	log.WithField("state", string(outcome)).Info("Migration done")
}

// HandleEvent adapts the migrator to the event consumer. Failures are
// surfaced through logs only: the message is always consumed, a fresh
// submission event is the retry path.
func (m *Migrator) HandleEvent(ctx context.Context, event models.Event) error {
	settings, err := models.SettingsFromEvent(event)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("Discarding malformed submission event")
		return nil
	}
	if settings.PatientID == "" {
		logger.Log.WithField("event_id", event.ID).Warn("Discarding submission event without patient id")
		return nil
	}

	m.Run(ctx, settings)
	return nil
}

func (m *Migrator) patientLock(patientID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[patientID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[patientID] = lock
	}
	return lock
}

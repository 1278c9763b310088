package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/gs1bridge/internal/domain/act"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/persistence/models"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

// GormActRepository implements act.Repository using GORM.
//
// Commit writes a bundle in one transaction. New acts (version 0) are
// inserted; stored acts are updated only when their version is unchanged.
// Change events are published after the transaction commits.
type GormActRepository struct {
	db        *gorm.DB
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewGormActRepository creates a new GormActRepository
func NewGormActRepository(db *gorm.DB, logger *zap.Logger) *GormActRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormActRepository{db: db, logger: logger}
}

// SetEventPublisher sets the publisher notified after each commit
func (r *GormActRepository) SetEventPublisher(p shared.EventPublisher) {
	r.publisher = p
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func preloadChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Identifiers", func(db *gorm.DB) *gorm.DB {
			return db.
				Select("act_identifiers.*, authorities.namespace").
				Joins("LEFT JOIN authorities ON authorities.id = act_identifiers.authority_id").
				Order("act_identifiers.id")
		}).
		Preload("Tags", orderBy("id")).
		Preload("Participations", orderBy("seq")).
		Preload("Relationships", orderBy("seq")).
		Preload("Notes", orderBy("seq")).
		Preload("Extensions", orderBy("id"))
}

func orderBy(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Order(column) }
}

// FindByID finds an act with all its children
func (r *GormActRepository) FindByID(ctx context.Context, id uuid.UUID) (*act.Act, error) {
	var m models.ActModel
	if err := preloadChildren(r.db.WithContext(ctx)).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// FindByIdentifier finds acts carrying value under authorityID
func (r *GormActRepository) FindByIdentifier(ctx context.Context, authorityID uuid.UUID, value string) ([]*act.Act, error) {
	sub := r.db.Model(&models.ActIdentifierModel{}).
		Select("act_id").
		Where("authority_id = ? AND value = ?", authorityID, value)
	return r.find(ctx, r.db.WithContext(ctx).Where("id IN (?)", sub))
}

// FindByIdentifierValue finds acts of mood carrying value under any authority
func (r *GormActRepository) FindByIdentifierValue(ctx context.Context, value string, mood act.Mood) ([]*act.Act, error) {
	sub := r.db.Model(&models.ActIdentifierModel{}).Select("act_id").Where("value = ?", value)
	return r.find(ctx, r.db.WithContext(ctx).Where("mood = ? AND id IN (?)", mood, sub))
}

func (r *GormActRepository) find(ctx context.Context, query *gorm.DB) ([]*act.Act, error) {
	var rows []models.ActModel
	if err := preloadChildren(query).Order("created_at").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	acts := make([]*act.Act, 0, len(rows))
	for i := range rows {
		acts = append(acts, rows[i].ToDomain())
	}
	return acts, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Insert stores a single new act and publishes ActInsertedEvent
func (r *GormActRepository) Insert(ctx context.Context, a *act.Act) error {
	b := act.NewBundle()
	b.Add(a)
	return r.Commit(ctx, b)
}

// Commit stores the bundle atomically and publishes the resulting event
func (r *GormActRepository) Commit(ctx context.Context, b *act.Bundle) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ActRepository", "Commit",
		telemetry.WithAttribute("bundle.acts", len(b.Acts)),
		telemetry.WithAttribute("bundle.materials", len(b.Materials)),
	)
	defer span.End()

	if b.IsEmpty() {
		telemetry.SetOK(span)
		return nil
	}

	var inserted, updated []*act.Act
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, updated = nil, nil
		for _, mat := range b.Materials {
			if err := createMaterial(tx, mat); err != nil {
				return err
			}
		}
		for _, a := range b.Acts {
			if err := checkIdentifiers(tx, a); err != nil {
				return err
			}
			if a.IsNew() {
				if err := insertAct(tx, a); err != nil {
					return err
				}
				inserted = append(inserted, a)
				continue
			}
			if err := updateAct(tx, a); err != nil {
				return err
			}
			updated = append(updated, a)
		}
		return nil
	})
	if err != nil {
		err = translateError(err)
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, r.logger).Debug("bundle commit failed", zap.Error(err))
		return err
	}

	for _, a := range b.Acts {
		a.Version++
	}
	telemetry.SetOK(span)

	r.publish(ctx, b, inserted, updated)
	return nil
}

func (r *GormActRepository) publish(ctx context.Context, b *act.Bundle, inserted, updated []*act.Act) {
	if r.publisher == nil {
		return
	}
	var event shared.DomainEvent
	if len(b.Acts) == 1 && len(inserted) == 1 && len(b.Materials) == 0 {
		event = act.NewActInsertedEvent(inserted[0])
	} else {
		event = act.NewBundleCommittedEvent(inserted, updated)
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		logger.WithLogger(ctx, r.logger).Error("failed to publish commit event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

// checkIdentifiers names the first identifier already owned by another act.
// The unique index still guards against a concurrent writer.
func checkIdentifiers(tx *gorm.DB, a *act.Act) error {
	for _, id := range a.Identifiers {
		var owners []uuid.UUID
		err := tx.Model(&models.ActIdentifierModel{}).
			Where("authority_id = ? AND value = ? AND act_id <> ?", id.AuthorityID, id.Value, a.ID).
			Limit(1).
			Pluck("act_id", &owners).Error
		if err != nil {
			return err
		}
		if len(owners) > 0 {
			return shared.ErrDuplicateIdentifier.WithTarget(id.Value)
		}
	}
	return nil
}

func insertAct(tx *gorm.DB, a *act.Act) error {
	m := models.ActModelFromDomain(a)
	m.Version = a.Version + 1
	if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
		return err
	}
	return createChildren(tx, m)
}

func updateAct(tx *gorm.DB, a *act.Act) error {
	m := models.ActModelFromDomain(a)
	res := tx.Model(&models.ActModel{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]any{
			"mood":       m.Mood,
			"class":      m.Class,
			"status":     m.Status,
			"type_code":  m.TypeCode,
			"act_time":   m.ActTime,
			"version":    a.Version + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithTarget(a.ID.String())
	}

	for _, child := range []any{
		&models.ActIdentifierModel{},
		&models.ActTagModel{},
		&models.ActParticipationModel{},
		&models.ActRelationshipModel{},
		&models.ActNoteModel{},
		&models.ActExtensionModel{},
	} {
		if err := tx.Where("act_id = ?", a.ID).Delete(child).Error; err != nil {
			return err
		}
	}
	return createChildren(tx, m)
}

// createChildren inserts child rows without ON CONFLICT clauses so that the
// identifier unique index surfaces as an error
func createChildren(tx *gorm.DB, m *models.ActModel) error {
	if len(m.Identifiers) > 0 {
		if err := tx.Create(&m.Identifiers).Error; err != nil {
			return err
		}
	}
	if len(m.Tags) > 0 {
		if err := tx.Create(&m.Tags).Error; err != nil {
			return err
		}
	}
	if len(m.Participations) > 0 {
		if err := tx.Create(&m.Participations).Error; err != nil {
			return err
		}
	}
	if len(m.Relationships) > 0 {
		if err := tx.Create(&m.Relationships).Error; err != nil {
			return err
		}
	}
	if len(m.Notes) > 0 {
		if err := tx.Create(&m.Notes).Error; err != nil {
			return err
		}
	}
	if len(m.Extensions) > 0 {
		if err := tx.Create(&m.Extensions).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ act.Repository = (*GormActRepository)(nil)

// Package preload keeps the rarely-changing access-control collections
// (clinician grants, per-prefix validation rules) in Redis so request
// handlers never hit Postgres for them. The snapshot is rebuilt on demand
// through the admin reload endpoint; reloading twice is an overwrite.
package preload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sparrowhealth/clinic-platform/pkg/common/logger"
	"github.com/sparrowhealth/clinic-platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	usersKey = "preload:users"
	rulesKey = "preload:rules"
)

var ErrGrantsNotFound = errors.New("no grants for user")

// UserRecord is the stored grants row. One clinician may be reachable under
// several addresses.
type UserRecord struct {
	ID            int64          `gorm:"primaryKey;column:id" json:"-"`
	Emails        datatypes.JSON `gorm:"column:emails" json:"emails"`
	Name          string         `gorm:"column:name" json:"name"`
	Role          string         `gorm:"column:role" json:"role"`
	PatientPrefix datatypes.JSON `gorm:"column:patient_prefix" json:"patientPrefix"`
	Submit        datatypes.JSON `gorm:"column:submit" json:"submit"`
}

func (UserRecord) TableName() string { return "users" }

// ValidationRule drives client-side completeness checks per patient prefix.
type ValidationRule struct {
	ID            int64          `gorm:"primaryKey;column:id" json:"-"`
	PatientPrefix datatypes.JSON `gorm:"column:patient_prefix" json:"patientPrefix"`
	Recordings    datatypes.JSON `gorm:"column:recordings" json:"recordings"`
	Files         datatypes.JSON `gorm:"column:files" json:"files"`
}

func (ValidationRule) TableName() string { return "validation_rules" }

type Cache struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCache(db *gorm.DB, redisClient *redis.Client) *Cache {
	return &Cache{db: db, redis: redisClient}
}

func (c *Cache) AutoMigrate() error {
	return c.db.AutoMigrate(&UserRecord{}, &ValidationRule{})
}

// Reload snapshots both collections from Postgres into Redis and returns a
// short stat line per collection.
func (c *Cache) Reload(ctx context.Context) ([]string, error) {
	var users []UserRecord
	if err := c.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	if err := c.writeSnapshot(ctx, usersKey, users); err != nil {
		return nil, err
	}

	var rules []ValidationRule
	if err := c.db.WithContext(ctx).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("loading validation rules: %w", err)
	}
	if err := c.writeSnapshot(ctx, rulesKey, rules); err != nil {
		return nil, err
	}

	stats := []string{
		fmt.Sprintf("Load %d items from users", len(users)),
		fmt.Sprintf("Load %d items from validation-rules", len(rules)),
	}
	logger.Log.WithFields(map[string]interface{}{
		"users": len(users),
		"rules": len(rules),
	}).Info("Preload cache reloaded")
	return stats, nil
}

func (c *Cache) writeSnapshot(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	// No TTL: the snapshot lives until the next admin reload.
	return c.redis.Set(ctx, key, raw, 0).Err()
}

// Grants resolves the access record for a clinician email, reading through
// to Postgres when the snapshot is cold.
func (c *Cache) Grants(ctx context.Context, email string) (models.Grants, error) {
	users, err := c.users(ctx)
	if err != nil {
		return models.Grants{}, err
	}

	for _, user := range users {
		var emails []string
		if err := json.Unmarshal(user.Emails, &emails); err != nil {
			continue
		}
		for _, candidate := range emails {
			if candidate == email {
				return toGrants(user, email)
			}
		}
	}
	return models.Grants{}, ErrGrantsNotFound
}

// RulesFor returns the validation rule matching the examination id's patient
// prefix, or an empty rule when none matches.
func (c *Cache) RulesFor(ctx context.Context, examinationID string) (ValidationRule, error) {
	var rules []ValidationRule
	if err := c.snapshot(ctx, rulesKey, &rules); err != nil {
		if err := c.db.WithContext(ctx).Find(&rules).Error; err != nil {
			return ValidationRule{}, err
		}
	}

	prefix := examinationID
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	for _, rule := range rules {
		var prefixes []string
		if err := json.Unmarshal(rule.PatientPrefix, &prefixes); err != nil {
			continue
		}
		for _, p := range prefixes {
			if p == prefix {
				return rule, nil
			}
		}
	}

	empty := ValidationRule{
		Recordings: datatypes.JSON([]byte("[]")),
		Files:      datatypes.JSON([]byte("[]")),
	}
	return empty, nil
}

func (c *Cache) users(ctx context.Context) ([]UserRecord, error) {
	var users []UserRecord
	if err := c.snapshot(ctx, usersKey, &users); err == nil {
		return users, nil
	}

	// Cold cache: read through and repopulate.
	if err := c.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, err
	}
	if err := c.writeSnapshot(ctx, usersKey, users); err != nil {
		logger.Log.WithError(err).Warn("Failed to repopulate users snapshot")
	}
	return users, nil
}

func (c *Cache) snapshot(ctx context.Context, key string, out interface{}) error {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func toGrants(user UserRecord, email string) (models.Grants, error) {
	grants := models.Grants{
		Email: email,
		Name:  user.Name,
		Role:  user.Role,
	}
	if len(user.PatientPrefix) > 0 {
		if err := json.Unmarshal(user.PatientPrefix, &grants.PatientPrefix); err != nil {
			return models.Grants{}, err
		}
	}
	if len(user.Submit) > 0 {
		var target models.SubmitTarget
		if err := json.Unmarshal(user.Submit, &target); err != nil {
			return models.Grants{}, err
		}
		if target.Schema != "" {
			grants.Submit = &target
		}
	}
	return grants, nil
}

// Package repository implements the Store: the sole owner of persisted
// gateway state. All mutations serialise through gorm transactions so no
// read ever observes a partial mutation.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keyhaven/internal/crypto"
	"keyhaven/internal/models"
)

// ErrNotFound is a sentinel for "missing" as distinct from a real database
// error. No Store method returns it: every lookup reports a missing id as
// (nil, nil) per the "not an error" rule.
var ErrNotFound = errors.New("not found")

// Store owns all persisted entities.
type Store struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

// New creates a Store backed by db. redis may be nil, in which case the
// token-lookup cache is skipped entirely.
func New(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *Store {
	return &Store{db: db, redis: redisClient, logger: logger}
}

// --- Channels ---------------------------------------------------------

func (s *Store) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := s.db.WithContext(ctx).Order("created_at").Find(&channels).Error
	return channels, err
}

func (s *Store) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.WithContext(ctx).First(&ch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Store) CreateChannel(ctx context.Context, ch *models.Channel) error {
	return s.db.WithContext(ctx).Create(ch).Error
}

// UpdateChannel applies patch fields to the channel and touches updatedAt.
func (s *Store) UpdateChannel(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ch, "id = ?", id).Error; err != nil {
			return err
		}
		if len(patch) == 0 {
			return tx.Model(&ch).Update("updated_at", time.Now()).Error
		}
		return tx.Model(&ch).Updates(patch).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// DeleteChannel removes the channel and cascades to every ApiKey under it,
// atomically.
func (s *Store) DeleteChannel(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", id).Delete(&models.ApiKey{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Channel{}, "id = ?", id).Error
	})
}

// --- Keys ---------------------------------------------------------------

func (s *Store) ListKeys(ctx context.Context, channelID *uuid.UUID) ([]models.ApiKey, error) {
	q := s.db.WithContext(ctx).Order("created_at")
	if channelID != nil {
		q = q.Where("channel_id = ?", *channelID)
	}
	var keys []models.ApiKey
	if err := q.Find(&keys).Error; err != nil {
		return nil, err
	}
	for i := range keys {
		s.decryptKey(&keys[i])
	}
	return keys, nil
}

func (s *Store) GetKey(ctx context.Context, id uuid.UUID) (*models.ApiKey, error) {
	var k models.ApiKey
	err := s.db.WithContext(ctx).First(&k, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.decryptKey(&k)
	return &k, nil
}

// ActiveKeysFor returns only status=active keys for a channel, in stable order.
func (s *Store) ActiveKeysFor(ctx context.Context, channelID uuid.UUID) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND status = ?", channelID, models.KeyStatusActive).
		Order("created_at").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	for i := range keys {
		s.decryptKey(&keys[i])
	}
	return keys, nil
}

func (s *Store) CreateKey(ctx context.Context, k *models.ApiKey) error {
	encrypted, err := s.encryptSecret(k.Key)
	if err != nil {
		return err
	}
	plain := k.Key
	k.Key = encrypted
	err = s.db.WithContext(ctx).Create(k).Error
	k.Key = plain
	return err
}

// CreateKeys appends all keys in one atomic unit.
func (s *Store) CreateKeys(ctx context.Context, keys []models.ApiKey) error {
	if len(keys) == 0 {
		return nil
	}
	plain := make([]string, len(keys))
	for i := range keys {
		plain[i] = keys[i].Key
		enc, err := s.encryptSecret(keys[i].Key)
		if err != nil {
			return err
		}
		keys[i].Key = enc
	}
	err := s.db.WithContext(ctx).Create(&keys).Error
	for i := range keys {
		keys[i].Key = plain[i]
	}
	return err
}

func (s *Store) UpdateKey(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (*models.ApiKey, error) {
	if raw, ok := patch["key"]; ok {
		if plain, ok := raw.(string); ok {
			enc, err := s.encryptSecret(plain)
			if err != nil {
				return nil, err
			}
			patch["key"] = enc
		}
	}

	var k models.ApiKey
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&k, "id = ?", id).Error; err != nil {
			return err
		}
		if len(patch) == 0 {
			return nil
		}
		return tx.Model(&k).Updates(patch).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.decryptKey(&k)
	return &k, nil
}

// encryptSecret encrypts with the process-wide Encryptor, which is a no-op
// passthrough when no encryption key was configured.
func (s *Store) encryptSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	return crypto.GetEncryptor().Encrypt(plaintext)
}

func (s *Store) decryptSecret(ciphertext string) string {
	if ciphertext == "" {
		return ciphertext
	}
	plain, err := crypto.GetEncryptor().Decrypt(ciphertext)
	if err != nil {
		s.logger.Warn("secret decrypt failed, returning stored value as-is", zap.Error(err))
		return ciphertext
	}
	return plain
}

func (s *Store) decryptKey(k *models.ApiKey) {
	k.Key = s.decryptSecret(k.Key)
}

func (s *Store) DeleteKey(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.ApiKey{}, "id = ?", id).Error
}

// --- Proxies --------------------------------------------------------------

func (s *Store) ListProxies(ctx context.Context) ([]models.Proxy, error) {
	var proxies []models.Proxy
	if err := s.db.WithContext(ctx).Order("created_at").Find(&proxies).Error; err != nil {
		return nil, err
	}
	for i := range proxies {
		proxies[i].Password = s.decryptSecret(proxies[i].Password)
	}
	return proxies, nil
}

func (s *Store) GetProxy(ctx context.Context, id uuid.UUID) (*models.Proxy, error) {
	var p models.Proxy
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Password = s.decryptSecret(p.Password)
	return &p, nil
}

func (s *Store) CreateProxy(ctx context.Context, p *models.Proxy) error {
	enc, err := s.encryptSecret(p.Password)
	if err != nil {
		return err
	}
	plain := p.Password
	p.Password = enc
	err = s.db.WithContext(ctx).Create(p).Error
	p.Password = plain
	return err
}

func (s *Store) UpdateProxy(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (*models.Proxy, error) {
	if raw, ok := patch["password"]; ok {
		if plain, ok := raw.(string); ok {
			enc, err := s.encryptSecret(plain)
			if err != nil {
				return nil, err
			}
			patch["password"] = enc
		}
	}

	var p models.Proxy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		if len(patch) == 0 {
			return nil
		}
		return tx.Model(&p).Updates(patch).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Password = s.decryptSecret(p.Password)
	return &p, nil
}

// DeleteProxy removes the proxy and clears proxyId on every referencing
// Channel, atomically (weak-reference semantics).
func (s *Store) DeleteProxy(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Channel{}).Where("proxy_id = ?", id).Update("proxy_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Proxy{}, "id = ?", id).Error
	})
}

// --- Tokens -----------------------------------------------------------

func (s *Store) ListTokens(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	err := s.db.WithContext(ctx).Order("created_at").Find(&tokens).Error
	return tokens, err
}

func (s *Store) GetToken(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	var t models.Token
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateToken(ctx context.Context, t *models.Token) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) UpdateToken(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (*models.Token, error) {
	var t models.Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, "id = ?", id).Error; err != nil {
			return err
		}
		if len(patch) == 0 {
			return nil
		}
		return tx.Model(&t).Updates(patch).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.invalidateTokenCache(ctx, t.Token)
	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, id uuid.UUID) error {
	tok, err := s.GetToken(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Token{}, "id = ?", id).Error; err != nil {
		return err
	}
	if tok != nil {
		s.invalidateTokenCache(ctx, tok.Token)
	}
	return nil
}

// TokenByValue looks up a Token by its raw bearer value, going through the
// optional redis cache first (keyed by a hash of the value, never the raw
// secret, so a cache dump does not leak bearer tokens).
func (s *Store) TokenByValue(ctx context.Context, value string) (*models.Token, error) {
	cacheKey := tokenCacheKey(value)

	if s.redis != nil {
		if id, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			parsed, perr := uuid.Parse(id)
			if perr == nil {
				return s.GetToken(ctx, parsed)
			}
		}
	}

	var t models.Token
	err := s.db.WithContext(ctx).First(&t, "token = ?", value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, t.ID.String(), 5*time.Minute).Err(); err != nil {
			s.logger.Warn("token cache set failed", zap.Error(err))
		}
	}

	return &t, nil
}

func (s *Store) invalidateTokenCache(ctx context.Context, value string) {
	if s.redis == nil || value == "" {
		return
	}
	if err := s.redis.Del(ctx, tokenCacheKey(value)).Err(); err != nil {
		s.logger.Warn("token cache invalidate failed", zap.Error(err))
	}
}

func tokenCacheKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "keyhaven:token:" + hex.EncodeToString(sum[:])
}

// --- Logs ---------------------------------------------------------------

// AppendLog inserts a RequestLog row and, in the same unit, garbage-collects
// logs older than now-maxLogsRetention.
func (s *Store) AppendLog(ctx context.Context, log *models.RequestLog, maxLogsRetentionMS int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		cutoff := time.Now().Add(-time.Duration(maxLogsRetentionMS) * time.Millisecond)
		return tx.Where("timestamp < ?", cutoff).Delete(&models.RequestLog{}).Error
	})
}

// QueryLogs applies AND-composed filters, returns results sorted by
// timestamp descending, paginated, plus the total filtered count.
func (s *Store) QueryLogs(ctx context.Context, f models.LogFilters) ([]models.RequestLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.RequestLog{})
	q = applyLogFilters(q, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := f.Offset, f.Limit
	if limit <= 0 {
		limit = 50
	}

	var logs []models.RequestLog
	err := applyLogFilters(s.db.WithContext(ctx).Model(&models.RequestLog{}), f).
		Order("timestamp DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func applyLogFilters(q *gorm.DB, f models.LogFilters) *gorm.DB {
	if f.ChannelID != nil {
		q = q.Where("channel_id = ?", *f.ChannelID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.StartTime != nil {
		q = q.Where("timestamp >= ?", *f.StartTime)
	}
	if f.EndTime != nil {
		q = q.Where("timestamp <= ?", *f.EndTime)
	}
	return q
}

// LogsSince returns logs with timestamp >= ts, sorted descending, for
// aggregation purposes (e.g. dashboard stats).
func (s *Store) LogsSince(ctx context.Context, ts time.Time) ([]models.RequestLog, error) {
	var logs []models.RequestLog
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", ts).
		Order("timestamp DESC").
		Find(&logs).Error
	return logs, err
}

// --- Settings -----------------------------------------------------------

func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	err := s.db.WithContext(ctx).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

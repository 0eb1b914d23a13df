package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/pkg/config"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var _ inventory.StockCache = (*RedisStockCache)(nil)

const (
	keyPrefix  = "inventario:stock:"
	defaultTTL = time.Minute
)

// Client subconjunto de *redis.Client que usa el cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStockCache cache-aside del stock agregado por producto.
// Los errores de Redis nunca llegan al llamador: una falla equivale a un miss.
type RedisStockCache struct {
	client Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisStockCache construye el cache. ttl <= 0 usa un minuto.
func NewRedisStockCache(client Client, ttl time.Duration, log *logger.Logger) *RedisStockCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStockCache{client: client, ttl: ttl, log: log.Named("cache")}
}

// NewClient abre la conexión a Redis y verifica con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func productKey(companyID, productID string) string {
	return keyPrefix + companyID + ":" + productID
}

// GetProductStock devuelve el valor cacheado, si existe.
func (c *RedisStockCache) GetProductStock(ctx context.Context, companyID, productID string) (*entity.ProductStock, bool) {
	val, err := c.client.Get(ctx, productKey(companyID, productID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("product_id", productID).Msg("lectura de cache fallida")
		}
		return nil, false
	}
	var stock entity.ProductStock
	if err := json.Unmarshal([]byte(val), &stock); err != nil {
		c.log.Warn().Err(err).Str("product_id", productID).Msg("entrada de cache corrupta")
		return nil, false
	}
	return &stock, true
}

// SetProductStock guarda la proyección con TTL.
func (c *RedisStockCache) SetProductStock(ctx context.Context, stock *entity.ProductStock) {
	data, err := json.Marshal(stock)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKey(stock.CompanyID, stock.ProductID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("product_id", stock.ProductID).Msg("escritura de cache fallida")
	}
}

// InvalidateProduct borra la proyección tras un movimiento confirmado.
func (c *RedisStockCache) InvalidateProduct(ctx context.Context, companyID, productID string) {
	if err := c.client.Del(ctx, productKey(companyID, productID)).Err(); err != nil {
		// El TTL acota la ventana de lectura desactualizada.
		c.log.Warn().Err(err).Str("product_id", productID).Msg("invalidación de cache fallida")
	}
}

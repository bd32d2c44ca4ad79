package clients

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"montshop-terminal/internal/domain"

	"github.com/shopspring/decimal"
)

// DebtCache keeps customer debt totals and company info in Redis with an
// explicit TTL. It replaces the ambient client-side stores of the
// original app with an injectable key-value service; cache misses and
// write failures are silent degradations, never hard errors.
type DebtCache struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewDebtCache(redis *RedisClient, ttl time.Duration) *DebtCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &DebtCache{redis: redis, ttl: ttl}
}

func debtTotalKey(customerID string) string {
	return "debt_total:" + customerID
}

// CustomerTotalDebt returns the cached aggregate debt for a customer.
// The second return is false on miss or any Redis failure.
func (c *DebtCache) CustomerTotalDebt(ctx context.Context, customerID string) (decimal.Decimal, bool) {
	if c == nil || c.redis == nil {
		return decimal.Zero, false
	}
	raw, err := c.redis.Get(ctx, debtTotalKey(customerID))
	if err != nil {
		return decimal.Zero, false
	}
	total, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return total, true
}

// StoreCustomerTotalDebt records the aggregate debt seen on the latest
// summary fetch so the receipt fallback has something to work from.
func (c *DebtCache) StoreCustomerTotalDebt(ctx context.Context, customerID string, total decimal.Decimal) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, debtTotalKey(customerID), total.StringFixed(2), c.ttl); err != nil {
		log.Printf("[CACHE] store debt total for %s failed: %v", customerID, err)
	}
}

const companyKey = "company_info"

// Company returns the cached issuer info, if present.
func (c *DebtCache) Company(ctx context.Context) (domain.Company, bool) {
	if c == nil || c.redis == nil {
		return domain.Company{}, false
	}
	raw, err := c.redis.Get(ctx, companyKey)
	if err != nil {
		return domain.Company{}, false
	}
	var company domain.Company
	if err := json.Unmarshal([]byte(raw), &company); err != nil {
		return domain.Company{}, false
	}
	return company, true
}

// StoreCompany caches the issuer info used on receipt headers.
func (c *DebtCache) StoreCompany(ctx context.Context, company domain.Company) {
	if c == nil || c.redis == nil {
		return
	}
	data, err := json.Marshal(company)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, companyKey, string(data), c.ttl); err != nil {
		log.Printf("[CACHE] store company info failed: %v", err)
	}
}

// README: Online-courier presence backed by Redis GEO (adds on ping, removes on offline).
package courier

import (
	"context"

	"github.com/redis/go-redis/v9"

	"fleet/internal/types"
)

const presenceGeoKey = "presence:couriers"

// Presence mirrors the set of online couriers into a Redis GEO index so the
// "new order nearby" fan-out can query who is close to a pickup without
// scanning the courier table. The authoritative online/KYC state stays in
// the Store; Presence is a cache.
type Presence struct {
	redis *redis.Client
}

func NewPresence(r *redis.Client) *Presence {
	return &Presence{redis: r}
}

func (p *Presence) Track(ctx context.Context, id types.ID, pos types.Point) error {
	return p.redis.GeoAdd(ctx, presenceGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (p *Presence) Drop(ctx context.Context, id types.ID) error {
	return p.redis.ZRem(ctx, presenceGeoKey, string(id)).Err()
}

// Nearby returns online couriers within radiusKm of the point, closest first.
func (p *Presence) Nearby(ctx context.Context, pos types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := p.redis.GeoSearch(ctx, presenceGeoKey, &redis.GeoSearchQuery{
		Longitude:  pos.Lng,
		Latitude:   pos.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// Package airports resolves free-text city names to IATA airport codes.
package airports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"travel-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

// Resolver returns ok=false when the city cannot be mapped to an airport.
type Resolver interface {
	ResolveAirport(ctx context.Context, city string, preferred []string) (string, bool)
}

// NormalizeCity lower-cases the city and drops any ", region" suffix.
func NormalizeCity(city string) string {
	city = strings.TrimSpace(city)
	if i := strings.Index(city, ","); i >= 0 {
		city = city[:i]
	}
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

// pick returns the first preferred code among candidates, else the first candidate.
func pick(candidates, preferred []string) string {
	for _, p := range preferred {
		p = strings.ToUpper(strings.TrimSpace(p))
		for _, c := range candidates {
			if c == p {
				return c
			}
		}
	}
	return candidates[0]
}

// StaticResolver answers from the built-in city table.
type StaticResolver struct{}

func (StaticResolver) ResolveAirport(_ context.Context, city string, preferred []string) (string, bool) {
	if code := strings.ToUpper(strings.TrimSpace(city)); knownCodes[code] {
		return code, true
	}
	candidates, ok := builtin[NormalizeCity(city)]
	if !ok || len(candidates) == 0 {
		return "", false
	}
	return pick(candidates, preferred), true
}

type airportDoc struct {
	IATA    string `json:"iata"`
	City    string `json:"city"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source airportDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ElasticsearchResolver looks the city up in the airport index and falls
// back to the built-in table on errors or misses.
type ElasticsearchResolver struct {
	client   *elasticsearch.Client
	index    string
	fallback Resolver
	logger   logger.Logger
}

func NewElasticsearchResolver(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchResolver {
	return &ElasticsearchResolver{
		client:   client,
		index:    index,
		fallback: StaticResolver{},
		logger:   log.WithFields(map[string]interface{}{"component": "airport-resolver"}),
	}
}

func (r *ElasticsearchResolver) ResolveAirport(ctx context.Context, city string, preferred []string) (string, bool) {
	if strings.TrimSpace(city) == "" {
		return "", false
	}

	codes, err := r.lookup(ctx, NormalizeCity(city))
	if err != nil {
		r.logger.Warn("airport index lookup failed, using built-in table", map[string]interface{}{
			"city":  city,
			"error": err,
		})
		return r.fallback.ResolveAirport(ctx, city, preferred)
	}
	if len(codes) == 0 {
		return r.fallback.ResolveAirport(ctx, city, preferred)
	}
	return pick(codes, preferred), true
}

func (r *ElasticsearchResolver) lookup(ctx context.Context, city string) ([]string, error) {
	query := map[string]interface{}{
		"size": 10,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"city": map[string]interface{}{
					"query":    city,
					"operator": "and",
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", r.index, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var codes []string
	seen := make(map[string]bool)
	for _, hit := range parsed.Hits.Hits {
		code := strings.ToUpper(strings.TrimSpace(hit.Source.IATA))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes, nil
}

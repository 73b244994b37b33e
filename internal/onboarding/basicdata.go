package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/onboard/internal/store"
	"github.com/wolfeidau/onboard/internal/telemetry"
)

const (
	basicDataPath = "/basicData"

	basicDataConcurrency = 4
)

// Basic data groups used by the employee forms.
const (
	GroupGender       = "GENDER"
	GroupCountry      = "COUNTRY"
	GroupRegion       = "REGION"
	GroupRelationship = "RELATIONSHIP"
)

// DefaultBasicDataGroups are prefetched when no groups are configured.
var DefaultBasicDataGroups = []string{GroupGender, GroupCountry, GroupRegion, GroupRelationship}

// sortedGroups are ordered by label after loading.
var sortedGroups = []string{GroupCountry, GroupRegion}

// BasicDataEntry is one value of a lookup group.
type BasicDataEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// GroupResult is the outcome of loading one group.
type GroupResult struct {
	Group   string
	Entries int
	Cached  bool
	Err     error
}

// BasicDataKey is the cache key of a group for a tenant.
func BasicDataKey(tenantID, group string) string {
	return "basicData:" + tenantID + ":" + group
}

// PrefetchBasicData loads every group not yet cached for the current tenant and caches it. Groups
// load independently; a failed group is logged and reported in its result without affecting the
// others. Nothing is fetched without a tenant.
func (s *Service) PrefetchBasicData(ctx context.Context, cache store.Cache, groups ...string) []GroupResult {
	tenantID := s.client.TenantID()
	if tenantID == "" {
		log.Debug().Msg("no tenant selected, skipping basic data")
		return nil
	}

	if len(groups) == 0 {
		groups = DefaultBasicDataGroups
	}

	results := make([]GroupResult, len(groups))

	var g errgroup.Group
	g.SetLimit(basicDataConcurrency)

	for i, group := range groups {
		results[i].Group = group

		var cached []BasicDataEntry
		err := cache.Get(BasicDataKey(tenantID, group), &cached)
		if err == nil {
			results[i].Cached = true
			results[i].Entries = len(cached)
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("group", group).Msg("ignoring unreadable cached basic data")
		}

		g.Go(func() error {
			entries, err := s.BasicData(ctx, group)
			if err == nil {
				err = cache.Set(BasicDataKey(tenantID, group), entries)
			}
			if err != nil {
				telemetry.GetMetrics().BasicDataFetchFailuresTotal.Add(ctx, 1)
				log.Error().Err(err).Str("group", group).Msg("failed to load basic data group")
				results[i].Err = err
				return nil
			}

			log.Debug().Str("group", group).Int("entries", len(entries)).Msg("loaded basic data group")
			results[i].Entries = len(entries)
			return nil
		})
	}

	g.Wait()

	return results
}

// BasicData fetches the entries of group.
func (s *Service) BasicData(ctx context.Context, group string) ([]BasicDataEntry, error) {
	var entries []BasicDataEntry
	if err := s.client.GetJSON(ctx, basicDataPath+"?group="+url.QueryEscape(group), &entries); err != nil {
		return nil, fmt.Errorf("failed to fetch basic data %s: %w", group, err)
	}

	if slices.Contains(sortedGroups, group) {
		slices.SortStableFunc(entries, func(a, b BasicDataEntry) int {
			return strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
		})
	}

	return entries, nil
}

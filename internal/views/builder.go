// Package views turns HubSpot meetings and tasks into the flat, fully
// populated records the calendar and task dashboard render.
package views

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"salesdesk-service/internal/hubspot"
)

// AssocBatchSize is how many source ids go into one association read.
const AssocBatchSize = 10

// maxInFlight bounds concurrent HubSpot calls per build.
const maxInFlight = 16

// CRM is the part of the HubSpot client the views read through.
type CRM interface {
	SearchAll(ctx context.Context, objectType string, req hubspot.SearchRequest) ([]hubspot.Object, error)
	GetObject(ctx context.Context, objectType, id string, props, assocTypes []string) (*hubspot.Object, error)
	BatchRead(ctx context.Context, objectType string, ids, props []string) ([]hubspot.Object, error)
	BatchReadAssociations(ctx context.Context, fromType, toType string, ids []string) ([]hubspot.AssociationResult, error)
}

// Target is one associated object type to resolve. A nil Properties list
// resolves ids only and skips the detail read.
type Target struct {
	ObjectType string
	Properties []string
}

// Join is the resolved association graph for a set of source records.
type Join struct {
	related  map[string]map[string][]string
	details  map[string]map[string]hubspot.Object
	Degraded bool
}

// IDs lists the deduplicated ids of target linked to fromID, in HubSpot order.
func (j *Join) IDs(target, fromID string) []string {
	ids := j.related[target][fromID]
	if ids == nil {
		return []string{}
	}
	return ids
}

// First returns the first linked record and whether one exists. The object
// may carry no properties if its detail read failed.
func (j *Join) First(target, fromID string) (hubspot.Object, bool) {
	ids := j.related[target][fromID]
	if len(ids) == 0 {
		return hubspot.Object{}, false
	}
	if obj, ok := j.details[target][ids[0]]; ok {
		return obj, true
	}
	return hubspot.Object{ID: ids[0]}, true
}

// Detail looks up a resolved record by id.
func (j *Join) Detail(target, id string) (hubspot.Object, bool) {
	obj, ok := j.details[target][id]
	return obj, ok
}

// Builder resolves associations for a page of records. Failures of
// association or detail reads leave the affected records unlinked and set
// Join.Degraded; they never fail the build.
type Builder struct {
	CRM CRM
}

func (b Builder) Build(ctx context.Context, fromType string, ids []string, targets ...Target) *Join {
	j := &Join{
		related: make(map[string]map[string][]string, len(targets)),
		details: make(map[string]map[string]hubspot.Object, len(targets)),
	}
	if len(ids) == 0 {
		return j
	}

	var mu sync.Mutex
	degrade := func(step, target string, err error) {
		log.Printf("⚠️ [views] %s %s→%s failed, continuing without: %v", step, fromType, target, err)
		mu.Lock()
		j.Degraded = true
		mu.Unlock()
	}

	// Association reads: every target × every batch in parallel. Results
	// land in fixed slots so flattening keeps HubSpot order.
	batches := hubspot.Chunk(ids, AssocBatchSize)
	slots := make([][][]hubspot.AssociationResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for ti, t := range targets {
		slots[ti] = make([][]hubspot.AssociationResult, len(batches))
		for bi, batch := range batches {
			g.Go(func() error {
				res, err := b.CRM.BatchReadAssociations(gctx, fromType, t.ObjectType, batch)
				if err != nil {
					degrade("association read", t.ObjectType, err)
					return nil
				}
				slots[ti][bi] = res
				return nil
			})
		}
	}
	_ = g.Wait()

	distinct := make([][]string, len(targets))
	for ti, t := range targets {
		byFrom := map[string][]string{}
		seen := map[string]struct{}{}
		for _, batch := range slots[ti] {
			for _, r := range batch {
				byFrom[r.FromID] = appendUnique(byFrom[r.FromID], r.ToIDs...)
				for _, id := range r.ToIDs {
					if _, dup := seen[id]; !dup {
						seen[id] = struct{}{}
						distinct[ti] = append(distinct[ti], id)
					}
				}
			}
		}
		j.related[t.ObjectType] = byFrom
	}

	// One detail read per target type, skipped when nothing is linked.
	found := make([][]hubspot.Object, len(targets))
	g, gctx = errgroup.WithContext(ctx)
	for ti, t := range targets {
		if t.Properties == nil || len(distinct[ti]) == 0 {
			continue
		}
		g.Go(func() error {
			objs, err := b.CRM.BatchRead(gctx, t.ObjectType, distinct[ti], t.Properties)
			if err != nil {
				degrade("detail read", t.ObjectType, err)
				return nil
			}
			found[ti] = objs
			return nil
		})
	}
	_ = g.Wait()

	for ti, t := range targets {
		m := make(map[string]hubspot.Object, len(found[ti]))
		for _, o := range found[ti] {
			m[o.ID] = o
		}
		j.details[t.ObjectType] = m
	}
	return j
}

func appendUnique(dst []string, ids ...string) []string {
	for _, id := range ids {
		dup := false
		for _, have := range dst {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, id)
		}
	}
	return dst
}

func sourceIDs(objs []hubspot.Object) []string {
	ids := make([]string, len(objs))
	for i, o := range objs {
		ids[i] = o.ID
	}
	return ids
}

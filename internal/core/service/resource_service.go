package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fleetcore/fleet-api/internal/core/domain"
	"github.com/fleetcore/fleet-api/internal/core/ports"
)

// ResourceService implements ports.ResourceService for a single Definition.
type ResourceService struct {
	def      domain.Definition
	repo     ports.ResourceRepository
	notifier ports.ChangeNotifier
	payloads *payloadValidator
	logger   zerolog.Logger
	now      func() time.Time
}

// NewResourceService wires a definition to its store. notifier may be nil.
func NewResourceService(def domain.Definition, repo ports.ResourceRepository, notifier ports.ChangeNotifier, logger zerolog.Logger) *ResourceService {
	return &ResourceService{
		def:      def,
		repo:     repo,
		notifier: notifier,
		payloads: newPayloadValidator(),
		logger:   logger.With().Str("resource", def.Name).Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ResourceService) Definition() domain.Definition { return s.def }

func (s *ResourceService) coll() string { return s.def.CollectionName() }

// List returns one page of documents matching the supplied filter parameters,
// sorted by the definition's default order.
func (s *ResourceService) List(ctx context.Context, in ports.ListInput) (*domain.ListResult, error) {
	filter, err := BuildFilter(s.def, in.Params)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter, in)
}

// Search is List with a mandatory free-text term.
func (s *ResourceService) Search(ctx context.Context, term string, in ports.ListInput) (*domain.ListResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.Invalid("QUERY", "search query is required", ParamQuery)
	}
	if len(s.def.SearchFields) == 0 {
		return nil, domain.Invalid("QUERY", s.def.Name+" does not support search")
	}
	filter, err := BuildFilter(s.def, in.Params)
	if err != nil {
		return nil, err
	}
	filter.Search = &domain.Search{Term: term, Fields: s.def.SearchFields}
	return s.list(ctx, filter, in)
}

// ByCategory is List restricted to one category value.
func (s *ResourceService) ByCategory(ctx context.Context, category string, in ports.ListInput) (*domain.ListResult, error) {
	if s.def.CategoryField == "" {
		return nil, domain.Invalid("CATEGORY", s.def.Name+" has no categories")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, domain.Invalid("CATEGORY", "category is required", ParamCategory)
	}
	filter, err := BuildFilter(s.def, in.Params)
	if err != nil {
		return nil, err
	}
	filter.Equals[s.def.CategoryField] = category
	return s.list(ctx, filter, in)
}

func (s *ResourceService) list(ctx context.Context, filter domain.Filter, in ports.ListInput) (*domain.ListResult, error) {
	page := domain.NewPage(in.Page, in.Limit)

	items, total, err := s.repo.List(ctx, s.coll(), domain.ListQuery{
		Filter:         filter,
		Sort:           s.def.Sorting(),
		Skip:           page.Skip(),
		Limit:          int64(page.Limit),
		ExcludeDeleted: s.def.SoftDelete,
	})
	if err != nil {
		return nil, s.failed("list", err)
	}
	if items == nil {
		items = []domain.Document{}
	}

	return &domain.ListResult{Items: items, Pagination: page.Paginate(total)}, nil
}

// Get returns a single document by identifier.
func (s *ResourceService) Get(ctx context.Context, id string) (domain.Document, error) {
	if !domain.IsValidID(id) {
		return nil, domain.InvalidID(id)
	}
	doc, err := s.repo.FindByID(ctx, s.coll(), id, s.def.SoftDelete)
	if err != nil {
		return nil, s.classify("get", err)
	}
	return doc, nil
}

// Create validates required fields, applies defaults, stamps timestamps and
// persists the document.
func (s *ResourceService) Create(ctx context.Context, actor string, payload domain.Document) (domain.Document, error) {
	doc := payload.WithoutImmutable()
	delete(doc, domain.FieldUpdatedAt)

	if err := s.payloads.check(s.def, doc, true); err != nil {
		return nil, err
	}
	applyDefaults(s.def, doc)

	if s.activates(doc) {
		if err := s.checkDependencies(ctx, doc); err != nil {
			return nil, err
		}
	}

	doc.Touch(s.now(), true)

	created, err := s.repo.Insert(ctx, s.coll(), doc)
	if err != nil {
		return nil, s.failed("create", err)
	}

	s.logger.Info().Str("id", created.ID()).Str("actor", actor).Msg("document created")
	s.notify(domain.ActionCreated, actor, created.ID(), created)
	return created, nil
}

// Update merges the supplied fields into an existing document and refreshes updatedAt.
func (s *ResourceService) Update(ctx context.Context, actor, id string, payload domain.Document) (domain.Document, error) {
	if !domain.IsValidID(id) {
		return nil, domain.InvalidID(id)
	}

	fields := payload.WithoutImmutable()
	delete(fields, domain.FieldUpdatedAt)
	if len(fields) == 0 {
		return nil, domain.Invalid("PAYLOAD", "no fields to update")
	}
	if err := s.payloads.check(s.def, fields, false); err != nil {
		return nil, err
	}

	if s.activates(fields) {
		if err := s.checkDependenciesFor(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	fields[domain.FieldUpdatedAt] = s.now()

	updated, err := s.repo.Update(ctx, s.coll(), id, fields, s.def.SoftDelete)
	if err != nil {
		return nil, s.classify("update", err)
	}

	s.notify(domain.ActionUpdated, actor, id, fields)
	return updated, nil
}

// SetStatus transitions the status field to one of the definition's statuses.
// Activation requires every dependency to be active.
func (s *ResourceService) SetStatus(ctx context.Context, actor, id, status string) (domain.Document, error) {
	if len(s.def.Statuses) == 0 {
		return nil, domain.Invalid("OPERATION", s.def.Name+" has no status field")
	}
	if !domain.IsValidID(id) {
		return nil, domain.InvalidID(id)
	}
	if !s.def.AllowsStatus(status) {
		return nil, invalidStatus(s.def)
	}

	if status == domain.StatusActive && s.def.DependencyField != "" {
		if err := s.checkDependenciesFor(ctx, id, nil); err != nil {
			return nil, err
		}
	}

	fields := domain.Document{domain.FieldStatus: status, domain.FieldUpdatedAt: s.now()}
	updated, err := s.repo.Update(ctx, s.coll(), id, fields, s.def.SoftDelete)
	if err != nil {
		return nil, s.classify("update", err)
	}

	s.logger.Info().Str("id", id).Str("status", status).Str("actor", actor).Msg("status changed")
	s.notify(domain.ActionStatusChanged, actor, id, domain.Document{domain.FieldStatus: status})
	return updated, nil
}

// Toggle sets the toggle field to in.Value, or flips it atomically when no
// value is given. Enabling requires every dependency to be active.
func (s *ResourceService) Toggle(ctx context.Context, actor, id string, in ports.ToggleInput) (domain.Document, error) {
	field := s.def.ToggleField
	if field == "" {
		return nil, domain.Invalid("OPERATION", s.def.Name+" cannot be toggled")
	}
	if !domain.IsValidID(id) {
		return nil, domain.InvalidID(id)
	}

	var (
		updated domain.Document
		err     error
	)
	if in.Value != nil {
		if *in.Value && s.def.DependencyField != "" {
			if err := s.checkDependenciesFor(ctx, id, nil); err != nil {
				return nil, err
			}
		}
		fields := domain.Document{field: *in.Value, domain.FieldUpdatedAt: s.now()}
		updated, err = s.repo.Update(ctx, s.coll(), id, fields, s.def.SoftDelete)
	} else {
		if s.def.DependencyField != "" {
			current, err := s.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if on, _ := current.Bool(field); !on {
				if err := s.checkDependencies(ctx, current); err != nil {
					return nil, err
				}
			}
		}
		updated, err = s.repo.Toggle(ctx, s.coll(), id, field, s.def.SoftDelete)
	}
	if err != nil {
		return nil, s.classify("update", err)
	}

	value, _ := updated.Bool(field)
	s.notify(domain.ActionToggled, actor, id, domain.Document{field: value})
	return updated, nil
}

// Rate folds a 1-5 score into the document's running rating in one atomic update.
func (s *ResourceService) Rate(ctx context.Context, actor, id string, score float64) (domain.Document, error) {
	if !s.def.Rateable {
		return nil, domain.Invalid("OPERATION", s.def.Name+" cannot be rated")
	}
	if !domain.IsValidID(id) {
		return nil, domain.InvalidID(id)
	}
	if score < 1 || score > 5 {
		return nil, domain.Invalid("RATING", "rating must be between 1 and 5", "rating")
	}

	updated, err := s.repo.Rate(ctx, s.coll(), id, score)
	if err != nil {
		return nil, s.classify("rate", err)
	}

	s.notify(domain.ActionRated, actor, id, domain.Document{"score": score})
	return updated, nil
}

// Delete removes the document, or marks it deleted for soft-delete resources.
func (s *ResourceService) Delete(ctx context.Context, actor, id string) error {
	if !domain.IsValidID(id) {
		return domain.InvalidID(id)
	}

	var err error
	if s.def.SoftDelete {
		now := s.now()
		_, err = s.repo.Update(ctx, s.coll(), id, domain.Document{
			domain.FieldDeletedAt: now,
			domain.FieldUpdatedAt: now,
		}, true)
	} else {
		err = s.repo.Delete(ctx, s.coll(), id)
	}
	if err != nil {
		return s.classify("delete", err)
	}

	s.logger.Info().Str("id", id).Str("actor", actor).Bool("soft", s.def.SoftDelete).Msg("document deleted")
	s.notify(domain.ActionDeleted, actor, id, nil)
	return nil
}

// Stats counts the collection in total and per status concurrently.
func (s *ResourceService) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx, s.coll(), s.def.SoftDelete)
		stats.Total = n
		return err
	})
	g.Go(func() error {
		m, err := s.repo.CountByField(gctx, s.coll(), domain.FieldStatus, s.def.SoftDelete)
		stats.ByStatus = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.failed("stats", err)
	}
	if stats.ByStatus == nil {
		stats.ByStatus = map[string]int64{}
	}
	return &stats, nil
}

// activates reports whether fields turn the document on.
func (s *ResourceService) activates(fields domain.Document) bool {
	if s.def.DependencyField == "" {
		return false
	}
	if status, _ := fields[domain.FieldStatus].(string); status == domain.StatusActive {
		return true
	}
	if s.def.ToggleField != "" {
		if on, _ := fields.Bool(s.def.ToggleField); on {
			return true
		}
	}
	return false
}

// checkDependenciesFor checks the dependencies in fields when supplied,
// otherwise those of the stored document.
func (s *ResourceService) checkDependenciesFor(ctx context.Context, id string, fields domain.Document) error {
	if _, ok := fields[s.def.DependencyField]; ok {
		return s.checkDependencies(ctx, fields)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.checkDependencies(ctx, current)
}

func (s *ResourceService) checkDependencies(ctx context.Context, doc domain.Document) error {
	ids := stringList(doc[s.def.DependencyField])
	if len(ids) == 0 {
		return nil
	}

	var lookup []string
	for _, id := range ids {
		if domain.IsValidID(id) {
			lookup = append(lookup, id)
		}
	}

	active := make(map[string]bool, len(lookup))
	if len(lookup) > 0 {
		deps, err := s.repo.FindByIDs(ctx, s.coll(), lookup)
		if err != nil {
			return s.failed("update", err)
		}
		for _, d := range deps {
			if _, deleted := d[domain.FieldDeletedAt]; deleted {
				continue
			}
			active[d.ID()] = d.IsActive()
		}
	}

	var unmet []string
	for _, id := range ids {
		if !active[id] {
			unmet = append(unmet, id)
		}
	}
	if len(unmet) > 0 {
		slices.Sort(unmet)
		return domain.DependenciesNotMet(slices.Compact(unmet))
	}
	return nil
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if l == "" {
			return nil
		}
		return []string{l}
	default:
		return nil
	}
}

// classify maps store errors onto the resource's error codes.
func (s *ResourceService) classify(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		if de, ok := domain.AsError(err); ok && de.Code != "" {
			return de
		}
		return domain.NotFound(s.def.Singular)
	}
	return s.failed(op, err)
}

func (s *ResourceService) failed(op string, err error) error {
	if de, ok := domain.AsError(err); ok && !errors.Is(err, domain.ErrInternal) {
		return de
	}
	return domain.Failed(s.def.Singular, op, err)
}

func (s *ResourceService) notify(action domain.ChangeAction, actor, id string, data domain.Document) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(domain.ChangeEvent{
		Resource:   s.def.Name,
		DocumentID: id,
		Action:     action,
		Actor:      actor,
		OccurredAt: s.now(),
		Data:       data,
	})
}

// Package objects implements the object operations: registering objects,
// showing an object as Cocina, listing its collections, reading and adding
// release tags, and refreshing descriptive metadata from the catalog.
package objects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dor/internal/catalog"
	"dor/internal/cocina"
	"dor/internal/events"
	"dor/internal/marcxml"
	"dor/internal/releasetags"
	"dor/internal/repository"
	dErrors "dor/pkg/domain-errors"
	"dor/pkg/platform/sentinel"
	"dor/pkg/requestcontext"
)

type Mapper interface {
	Build(ctx context.Context, obj repository.Object) (cocina.Object, error)
}

type Resolver interface {
	Resolve(ctx context.Context, node releasetags.Node) (releasetags.State, error)
}

// MODSSource renders a catalog record as MODS.
type MODSSource interface {
	MODS(ctx context.Context, lookup marcxml.Lookup) ([]byte, error)
}

type Service struct {
	store     repository.Store
	mapper    Mapper
	resolver  Resolver
	mods      MODSSource
	publisher events.Publisher
	mint      IDMinter
	logger    *slog.Logger
}

// maxWriteAttempts bounds how often a read-modify-write is replayed after
// another writer changed the object first.
const maxWriteAttempts = 3

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithIDMinter replaces the identifier source used by Register.
func WithIDMinter(mint IDMinter) Option {
	return func(s *Service) {
		s.mint = mint
	}
}

func New(store repository.Store, mapper Mapper, resolver Resolver, mods MODSSource, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if mapper == nil {
		return nil, errors.New("cocina mapper is required")
	}
	if resolver == nil {
		return nil, errors.New("release resolver is required")
	}
	if mods == nil {
		return nil, errors.New("MODS source is required")
	}
	s := &Service{
		store:     store,
		mapper:    mapper,
		resolver:  resolver,
		mods:      mods,
		publisher: events.NopPublisher{},
		mint:      MintDruid,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Show returns the Cocina representation of an object.
func (s *Service) Show(ctx context.Context, id string) (cocina.Object, error) {
	obj, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, obj)
}

// Collections returns the collections the object is a direct member of, as
// Cocina, in membership order. Memberships pointing at missing objects are
// skipped.
func (s *Service) Collections(ctx context.Context, id string) ([]cocina.Object, error) {
	obj, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	out := []cocina.Object{}
	for _, cid := range obj.Core().CollectionIDs {
		if cid == id {
			continue
		}
		coll, err := s.store.Find(ctx, cid)
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "object references missing collection",
				"object_id", id,
				"collection_id", cid,
			)
			continue
		}
		if err != nil {
			return nil, translateStore(cid, err)
		}
		mapped, err := s.build(ctx, coll)
		if err != nil {
			return nil, err
		}
		out = append(out, mapped)
	}
	return out, nil
}

// ReleaseTags returns the resolved release state for an object.
func (s *Service) ReleaseTags(ctx context.Context, id string) (releasetags.State, error) {
	obj, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := s.resolver.Resolve(ctx, repository.NodeOf(obj))
	if err != nil {
		return nil, translateResolution(id, err)
	}
	return state, nil
}

// AddReleaseTag validates and appends a release tag to the object. A tag
// without an actor is attributed to the authenticated subject.
func (s *Service) AddReleaseTag(ctx context.Context, id string, in releasetags.Input) (releasetags.Tag, error) {
	now := requestcontext.Now(ctx)
	var tag releasetags.Tag
	_, err := s.update(ctx, id, func(obj repository.Object) error {
		t, err := releasetags.NewTag(in, now)
		if err != nil {
			return err
		}
		if t.Who == "" {
			t.Who = requestcontext.Subject(ctx)
		}
		tag = t
		core := obj.Core()
		core.ReleaseTags = append(core.ReleaseTags, tag)
		core.UpdatedAt = now
		return nil
	})
	if err != nil {
		return releasetags.Tag{}, err
	}

	s.logger.InfoContext(ctx, "release tag added",
		"request_id", requestcontext.RequestID(ctx),
		"object_id", id,
		"to", tag.To,
		"what", tag.What,
		"release", tag.Release,
	)
	s.emit(ctx, events.New(events.TypeReleaseTagAdded, id, now, map[string]any{
		"to":      tag.To,
		"what":    tag.What,
		"release": tag.Release,
		"who":     tag.Who,
	}))
	return tag, nil
}

// RefreshMetadata replaces the object's descriptive metadata with MODS
// derived from its catalog record.
func (s *Service) RefreshMetadata(ctx context.Context, id string) error {
	obj, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	catkey := obj.Core().Catkey
	if catkey == "" {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s has no catkey to refresh metadata from", id))
	}

	mods, err := s.catalogMODS(ctx, catkey)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	_, err = s.update(ctx, id, func(obj repository.Object) error {
		core := obj.Core()
		if core.Catkey != catkey {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("catkey of %s changed during refresh", id))
		}
		core.DescMetadata = string(mods)
		core.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "descriptive metadata refreshed",
		"request_id", requestcontext.RequestID(ctx),
		"object_id", id,
		"catkey", catkey,
	)
	s.emit(ctx, events.New(events.TypeMetadataRefreshed, id, now, map[string]any{"catkey": catkey}))
	return nil
}

// update reads the object, applies change and saves it. When another writer
// saved the object in between, the read and change are replayed on the newer
// copy, up to maxWriteAttempts times.
func (s *Service) update(ctx context.Context, id string, change func(repository.Object) error) (repository.Object, error) {
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		var obj repository.Object
		obj, err = s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := change(obj); err != nil {
			return nil, err
		}
		err = s.store.Save(ctx, obj)
		if err == nil {
			return obj, nil
		}
		if !retryable(err) {
			break
		}
		s.logger.DebugContext(ctx, "object changed during update, retrying",
			"object_id", id,
			"attempt", attempt,
		)
	}
	return nil, translateStore(id, err)
}

func retryable(err error) bool {
	var dup *repository.DuplicateSourceIDError
	return errors.Is(err, sentinel.ErrConflict) && !errors.As(err, &dup)
}

func (s *Service) catalogMODS(ctx context.Context, catkey string) ([]byte, error) {
	mods, err := s.mods.MODS(ctx, marcxml.Lookup{Catkey: catkey})
	if err != nil {
		// The catalog missing the record is an upstream problem, not a missing object.
		if catalog.IsNotFound(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeUpstream, fmt.Sprintf("Record not found in Symphony: %s", catkey))
		}
		return nil, err
	}
	return mods, nil
}

func (s *Service) find(ctx context.Context, id string) (repository.Object, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "object identifier is required")
	}
	obj, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, translateStore(id, err)
	}
	return obj, nil
}

func (s *Service) build(ctx context.Context, obj repository.Object) (cocina.Object, error) {
	out, err := s.mapper.Build(ctx, obj)
	if err == nil {
		return out, nil
	}
	var unsupported *cocina.UnsupportedObjectTypeError
	if errors.As(err, &unsupported) {
		s.logger.ErrorContext(ctx, "no cocina mapping for object",
			"object_id", obj.Core().ID,
			"variant", unsupported.Variant,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, unsupported.Error())
	}
	return nil, translateResolution(obj.Core().ID, err)
}

// emit never fails the caller: the write already happened.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue object event",
			"object_id", event.ObjectID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

func translateStore(id string, err error) error {
	var dup *repository.DuplicateSourceIDError
	switch {
	case errors.As(err, &dup):
		return dErrors.Wrap(err, dErrors.CodeConflict, dup.Error())
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("%s was changed by another request", id))
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("Object not found: %s", id))
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "object store is unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("object store failed for %s", id))
	}
}

func translateResolution(id string, err error) error {
	var (
		cycle *releasetags.CycleError
		depth *releasetags.DepthExceededError
	)
	switch {
	case errors.As(err, &cycle), errors.As(err, &depth):
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("collection ancestry of %s is malformed", id))
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "object store is unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to resolve release tags for %s", id))
	}
}

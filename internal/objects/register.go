package objects

import (
	"context"
	"errors"
	"fmt"

	"dor/internal/cocina"
	"dor/internal/events"
	"dor/internal/repository"
	dErrors "dor/pkg/domain-errors"
	"dor/pkg/platform/sentinel"
	"dor/pkg/requestcontext"
)

// Register creates an object from a registration request and returns it as
// persisted. The governing admin policy must exist and an item's source ID
// must not already be registered. When the request links a Symphony record,
// the descriptive metadata is taken from the catalog.
func (s *Service) Register(ctx context.Context, req cocina.Request) (cocina.Object, error) {
	obj, err := objectFromRequest(s.mint(), req)
	if err != nil {
		return nil, err
	}
	core := obj.Core()

	apo := req.Administrative.HasAdminPolicy
	if _, err := s.store.Find(ctx, apo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("Admin policy not found: %s", apo))
		}
		return nil, translateStore(apo, err)
	}

	if core.Catkey != "" {
		mods, err := s.catalogMODS(ctx, core.Catkey)
		if err != nil {
			return nil, err
		}
		core.DescMetadata = string(mods)
	}

	now := requestcontext.Now(ctx)
	core.UpdatedAt = now
	if err := s.create(ctx, obj); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "object registered",
		"request_id", requestcontext.RequestID(ctx),
		"object_id", core.ID,
		"kind", obj.Kind(),
		"source_id", core.SourceID,
	)
	s.emit(ctx, events.New(events.TypeRegistered, core.ID, now, map[string]any{
		"kind":             string(obj.Kind()),
		"source_id":        core.SourceID,
		"admin_policy_id":  core.AdminPolicyID,
		"catkey":           core.Catkey,
		"registered_by":    requestcontext.Subject(ctx),
		"content_type_tag": contentTypeTag(obj),
	}))
	return s.build(ctx, obj)
}

// create saves a new object, minting a fresh identifier if the first one is
// already taken.
func (s *Service) create(ctx context.Context, obj repository.Object) error {
	core := obj.Core()
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = s.store.Save(ctx, obj)
		if err == nil || !retryable(err) {
			break
		}
		s.logger.WarnContext(ctx, "minted identifier already in use",
			"object_id", core.ID,
			"attempt", attempt,
		)
		core.ID = s.mint()
	}
	if err != nil {
		return translateStore(core.ID, err)
	}
	return nil
}

func objectFromRequest(id string, req cocina.Request) (repository.Object, error) {
	if req.Label == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "label is required")
	}
	if req.Administrative.HasAdminPolicy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "administrative.hasAdminPolicy is required")
	}
	version := req.Version
	if version < 1 {
		version = 1
	}
	base := repository.Base{
		ID:            id,
		Label:         req.Label,
		Version:       version,
		AdminPolicyID: req.Administrative.HasAdminPolicy,
		FullTitle:     req.Title(),
	}

	switch {
	case req.Type == cocina.VocabAdminPolicy:
		return &repository.AdminPolicy{
			Base:                 base,
			DefaultObjectRights:  req.Administrative.DefaultObjectRights,
			RegistrationWorkflow: req.Administrative.RegistrationWorkflow,
		}, nil
	case req.Type == cocina.VocabCollection:
		base.Catkey = req.Catkey()
		return &repository.Collection{Base: base}, nil
	case cocina.IsDRO(req.Type):
		return itemFromRequest(base, req)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unsupported object type %q", req.Type))
	}
}

func itemFromRequest(base repository.Base, req cocina.Request) (*repository.Item, error) {
	if req.Identification.SourceID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identification.sourceId is required")
	}
	base.SourceID = req.Identification.SourceID
	base.Catkey = req.Catkey()

	var viewingDirection string
	if req.Structural != nil {
		viewingDirection = req.Structural.ViewingDirection
		base.CollectionIDs = req.Structural.IsMemberOf
	}
	base.AdministrativeTags = []string{cocina.ContentTypeTag(req.Type, viewingDirection)}
	item := &repository.Item{Base: base}

	if req.Structural != nil && req.Structural.ContentMetadata != "" {
		cm, err := repository.ParseContentMetadata([]byte(req.Structural.ContentMetadata))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "structural.contentMetadata is not a valid contentMetadata document")
		}
		item.Content = cm
	}
	if req.Access != nil && req.Access.EmbargoReleaseDate != nil {
		at := req.Access.EmbargoReleaseDate.UTC()
		item.EmbargoReleaseDate = &at
	}
	return item, nil
}

func contentTypeTag(obj repository.Object) string {
	if item, ok := obj.(*repository.Item); ok {
		return item.ContentTypeTag()
	}
	return ""
}

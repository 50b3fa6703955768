package objects

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"dor/internal/catalog"
	"dor/internal/cocina"
	"dor/internal/events"
	"dor/internal/marcxml"
	"dor/internal/releasetags"
	"dor/internal/repository"
	"dor/internal/repository/store"
	dErrors "dor/pkg/domain-errors"
	"dor/pkg/platform/sentinel"
	"dor/pkg/requestcontext"
)

type fakeMODS struct {
	body    []byte
	err     error
	lookups []marcxml.Lookup
}

func (f *fakeMODS) MODS(_ context.Context, lookup marcxml.Lookup) ([]byte, error) {
	f.lookups = append(f.lookups, lookup)
	return f.body, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

// interleavingStore runs another writer between the service's read and its
// save, the given number of times.
type interleavingStore struct {
	repository.Store
	interleave int
	writer     func(ctx context.Context, st repository.Store) error
}

func (st *interleavingStore) Save(ctx context.Context, obj repository.Object) error {
	if st.interleave > 0 {
		st.interleave--
		if err := st.writer(ctx, st.Store); err != nil {
			return err
		}
	}
	return st.Store.Save(ctx, obj)
}

// =============================================================================
// Objects Service Test Suite
// =============================================================================
// Justification: exercises the object operations against the in-memory store
// with the real resolver and mapper so error translation and persistence are
// covered end to end.

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	store     *store.MemoryStore
	mods      *fakeMODS
	publisher *recordingPublisher
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	s.ctx = requestcontext.WithSubject(requestcontext.WithTime(context.Background(), s.now), "argo")
	s.store = store.NewMemoryStore()
	s.mods = &fakeMODS{body: []byte(`<mods xmlns="http://www.loc.gov/mods/v3"/>`)}
	s.publisher = &recordingPublisher{}

	s.service = s.newService(s.store)
}

func (s *ServiceSuite) newService(st repository.Store, opts ...Option) *Service {
	resolver, err := releasetags.NewResolver(repository.NewReleaseGraph(s.store))
	s.Require().NoError(err)
	mapper, err := cocina.NewMapper(resolver)
	s.Require().NoError(err)
	svc, err := New(st, mapper, resolver, s.mods, append([]Option{WithPublisher(s.publisher)}, opts...)...)
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) save(obj repository.Object) {
	s.Require().NoError(s.store.Save(s.ctx, obj))
}

func (s *ServiceSuite) TestNew_RequiresCollaborators() {
	_, err := New(nil, nil, nil, nil)
	s.Error(err)
}

// =============================================================================
// Show / Collections
// =============================================================================

func (s *ServiceSuite) TestShow() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item", Label: "Item", Version: 2, FullTitle: "Title"}})

	out, err := s.service.Show(s.ctx, "druid:item")
	s.Require().NoError(err)
	dro, ok := out.(*cocina.DRO)
	s.Require().True(ok)
	s.Equal(2, dro.Version)
}

func (s *ServiceSuite) TestShow_Errors() {
	s.Run("missing object", func() {
		_, err := s.service.Show(s.ctx, "druid:missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "druid:missing")
	})

	s.Run("blank identifier", func() {
		_, err := s.service.Show(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unsupported variant", func() {
		s.save(&repository.Agreement{Base: repository.Base{ID: "druid:agr"}})
		_, err := s.service.Show(s.ctx, "druid:agr")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		var unsupported *cocina.UnsupportedObjectTypeError
		s.ErrorAs(err, &unsupported)
	})

	s.Run("collection cycle", func() {
		s.save(&repository.Collection{Base: repository.Base{ID: "druid:a", CollectionIDs: []string{"druid:b"}}})
		s.save(&repository.Collection{Base: repository.Base{ID: "druid:b", CollectionIDs: []string{"druid:a"}}})
		s.save(&repository.Item{Base: repository.Base{ID: "druid:cyclic", CollectionIDs: []string{"druid:a"}}})

		_, err := s.service.Show(s.ctx, "druid:cyclic")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		var cycle *releasetags.CycleError
		s.ErrorAs(err, &cycle)
	})
}

func (s *ServiceSuite) TestCollections() {
	s.save(&repository.Collection{Base: repository.Base{ID: "druid:c1", Label: "One"}})
	s.save(&repository.Collection{Base: repository.Base{ID: "druid:c2", Label: "Two"}})
	s.save(&repository.Item{Base: repository.Base{
		ID:            "druid:item",
		CollectionIDs: []string{"druid:c2", "druid:gone", "druid:item", "druid:c1"},
	}})

	colls, err := s.service.Collections(s.ctx, "druid:item")
	s.Require().NoError(err)
	s.Require().Len(colls, 2)
	s.Equal("druid:c2", colls[0].ExternalID())
	s.Equal("druid:c1", colls[1].ExternalID())
}

// =============================================================================
// Release tags
// =============================================================================

func (s *ServiceSuite) TestAddReleaseTagThenResolve() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item"}})

	tag, err := s.service.AddReleaseTag(s.ctx, "druid:item", releasetags.Input{To: "Searchworks", What: "self", Release: true})
	s.Require().NoError(err)
	s.Equal("argo", tag.Who)
	s.Equal(s.now, tag.When)

	stored, err := s.store.Find(s.ctx, "druid:item")
	s.Require().NoError(err)
	s.Require().Len(stored.Core().ReleaseTags, 1)
	s.Equal(s.now, stored.Core().UpdatedAt)

	state, err := s.service.ReleaseTags(s.ctx, "druid:item")
	s.Require().NoError(err)
	release, ok := state.Released("Searchworks")
	s.True(ok)
	s.True(release)

	s.Require().Len(s.publisher.events, 1)
	s.Equal(events.TypeReleaseTagAdded, s.publisher.events[0].Type)
	s.Equal("druid:item", s.publisher.events[0].ObjectID)
}

func (s *ServiceSuite) TestAddReleaseTag_Invalid() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item"}})

	_, err := s.service.AddReleaseTag(s.ctx, "druid:item", releasetags.Input{To: "Searchworks", What: "self", Release: "yes"})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	stored, err := s.store.Find(s.ctx, "druid:item")
	s.Require().NoError(err)
	s.Empty(stored.Core().ReleaseTags)
	s.Empty(s.publisher.events)
}

func (s *ServiceSuite) TestAddReleaseTag_PublishFailureDoesNotFail() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item"}})
	s.publisher.err = events.ErrBufferFull

	_, err := s.service.AddReleaseTag(s.ctx, "druid:item", releasetags.Input{To: "Searchworks", What: "collection", Release: false})
	s.NoError(err)
}

func (s *ServiceSuite) TestAddReleaseTag_ConcurrentWriteIsReplayed() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item"}})
	other := releasetags.Tag{To: "Earthworks", What: "self", Who: "other", When: s.now, Release: true}
	st := &interleavingStore{Store: s.store, interleave: 1, writer: func(ctx context.Context, inner repository.Store) error {
		obj, err := inner.Find(ctx, "druid:item")
		if err != nil {
			return err
		}
		obj.Core().ReleaseTags = append(obj.Core().ReleaseTags, other)
		return inner.Save(ctx, obj)
	}}
	svc := s.newService(st)

	_, err := svc.AddReleaseTag(s.ctx, "druid:item", releasetags.Input{To: "Searchworks", What: "self", Release: true})
	s.Require().NoError(err)

	stored, err := s.store.Find(s.ctx, "druid:item")
	s.Require().NoError(err)
	tags := stored.Core().ReleaseTags
	s.Require().Len(tags, 2)
	s.Equal("Earthworks", tags[0].To)
	s.Equal("Searchworks", tags[1].To)
	s.Len(s.publisher.events, 1)
}

func (s *ServiceSuite) TestAddReleaseTag_PersistentConflict() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item"}})
	st := &interleavingStore{Store: s.store, interleave: maxWriteAttempts, writer: func(ctx context.Context, inner repository.Store) error {
		obj, err := inner.Find(ctx, "druid:item")
		if err != nil {
			return err
		}
		obj.Core().Label += "x"
		return inner.Save(ctx, obj)
	}}
	svc := s.newService(st)

	_, err := svc.AddReleaseTag(s.ctx, "druid:item", releasetags.Input{To: "Searchworks", What: "self", Release: true})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.True(errors.Is(err, sentinel.ErrConflict))

	stored, err := s.store.Find(s.ctx, "druid:item")
	s.Require().NoError(err)
	s.Empty(stored.Core().ReleaseTags)
	s.Equal("xxx", stored.Core().Label)
	s.Empty(s.publisher.events)
}

// =============================================================================
// Metadata refresh
// =============================================================================

func (s *ServiceSuite) TestRefreshMetadata() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item", Catkey: "111", Version: 3}})

	s.Require().NoError(s.service.RefreshMetadata(s.ctx, "druid:item"))

	s.Equal([]marcxml.Lookup{{Catkey: "111"}}, s.mods.lookups)
	stored, err := s.store.Find(s.ctx, "druid:item")
	s.Require().NoError(err)
	s.Equal(`<mods xmlns="http://www.loc.gov/mods/v3"/>`, stored.Core().DescMetadata)
	s.Equal(3, stored.Core().Version)

	s.Require().Len(s.publisher.events, 1)
	s.Equal(events.TypeMetadataRefreshed, s.publisher.events[0].Type)
	s.Equal("111", s.publisher.events[0].Data["catkey"])
}

func (s *ServiceSuite) TestRefreshMetadata_Errors() {
	s.Run("no catkey", func() {
		s.save(&repository.Item{Base: repository.Base{ID: "druid:nocat"}})
		err := s.service.RefreshMetadata(s.ctx, "druid:nocat")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Empty(s.mods.lookups)
	})

	s.Run("catalog record missing is an upstream error", func() {
		s.save(&repository.Item{Base: repository.Base{ID: "druid:item", Catkey: "666"}})
		upstream := &catalog.UpstreamError{Category: catalog.ErrorNotFound, Catkey: "666", Status: 404, Message: "Record not found in Symphony: 666"}
		s.mods.err = dErrors.Wrap(upstream, dErrors.CodeNotFound, upstream.Message)

		err := s.service.RefreshMetadata(s.ctx, "druid:item")
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
		s.Contains(err.Error(), "Record not found in Symphony: 666")
	})

	s.Run("other catalog errors pass through", func() {
		s.save(&repository.Item{Base: repository.Base{ID: "druid:item", Catkey: "111"}})
		s.mods.err = dErrors.New(dErrors.CodeInvalidRecord, "MARC record 111 from Symphony should have exactly one populated 245")

		err := s.service.RefreshMetadata(s.ctx, "druid:item")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRecord))
		stored, findErr := s.store.Find(s.ctx, "druid:item")
		s.Require().NoError(findErr)
		s.Empty(stored.Core().DescMetadata)
	})

	s.Run("missing object", func() {
		err := s.service.RefreshMetadata(s.ctx, "druid:missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRefreshMetadata_ConcurrentWriteIsReplayed() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:item", Catkey: "111"}})
	st := &interleavingStore{Store: s.store, interleave: 1, writer: func(ctx context.Context, inner repository.Store) error {
		obj, err := inner.Find(ctx, "druid:item")
		if err != nil {
			return err
		}
		obj.Core().Label = "relabelled"
		return inner.Save(ctx, obj)
	}}
	svc := s.newService(st)

	s.Require().NoError(svc.RefreshMetadata(s.ctx, "druid:item"))

	s.Len(s.mods.lookups, 1, "the catalog is read once")
	stored, err := s.store.Find(s.ctx, "druid:item")
	s.Require().NoError(err)
	s.Equal("relabelled", stored.Core().Label)
	s.Equal(`<mods xmlns="http://www.loc.gov/mods/v3"/>`, stored.Core().DescMetadata)
}

// =============================================================================
// Registration
// =============================================================================

const registrationAPO = "druid:dd999df4567"

func (s *ServiceSuite) registrationService(ids ...string) *Service {
	s.save(&repository.AdminPolicy{Base: repository.Base{ID: registrationAPO, Label: "APO"}})
	next := 0
	return s.newService(s.store, WithIDMinter(func() string {
		id := ids[next%len(ids)]
		next++
		return id
	}))
}

func imageRequest(sourceID string) cocina.Request {
	return cocina.Request{
		Type:           cocina.VocabImage,
		Label:          "My image",
		Administrative: cocina.RequestAdministrative{HasAdminPolicy: registrationAPO},
		Identification: cocina.Identification{SourceID: sourceID},
		Description:    &cocina.Description{Title: []cocina.Title{{Primary: true, TitleFull: "A full title"}}},
	}
}

func (s *ServiceSuite) TestRegister() {
	svc := s.registrationService("druid:bc123df4567")
	req := imageRequest("sul:8.559351")
	req.Identification.CatalogLinks = []cocina.CatalogLink{
		{Catalog: "previous symphony", CatalogRecordID: "1"},
		{Catalog: "symphony", CatalogRecordID: "8888"},
	}

	out, err := svc.Register(s.ctx, req)
	s.Require().NoError(err)
	dro, ok := out.(*cocina.DRO)
	s.Require().True(ok)
	s.Equal("druid:bc123df4567", dro.ExternalIdentifier)
	s.Equal(cocina.VocabImage, dro.Type)
	s.Equal(1, dro.Version)
	s.Equal("A full title", dro.Description.Title[0].TitleFull)
	s.Require().NotNil(dro.Administrative.HasAdminPolicy)
	s.Equal(registrationAPO, *dro.Administrative.HasAdminPolicy)

	s.Equal([]marcxml.Lookup{{Catkey: "8888"}}, s.mods.lookups)
	stored, err := s.store.Find(s.ctx, "druid:bc123df4567")
	s.Require().NoError(err)
	core := stored.Core()
	s.Equal("sul:8.559351", core.SourceID)
	s.Equal("8888", core.Catkey)
	s.Equal([]string{"Process : Content Type : Image"}, core.AdministrativeTags)
	s.Equal(`<mods xmlns="http://www.loc.gov/mods/v3"/>`, core.DescMetadata)
	s.Equal(int64(1), core.Revision)

	s.Require().Len(s.publisher.events, 1)
	s.Equal(events.TypeRegistered, s.publisher.events[0].Type)
	s.Equal("sul:8.559351", s.publisher.events[0].Data["source_id"])
	s.Equal("argo", s.publisher.events[0].Data["registered_by"])
}

func (s *ServiceSuite) TestRegister_ContentMetadata() {
	svc := s.registrationService("druid:bc123df4567")
	req := imageRequest("sul:1")
	req.Type = cocina.VocabBook
	req.Structural = &cocina.RequestStructural{
		ViewingDirection: "right-to-left",
		ContentMetadata: `<contentMetadata type="book">
  <resource id="page-1" type="page"><label>Page 1</label><file id="00001.jp2"/></resource>
</contentMetadata>`,
	}

	out, err := svc.Register(s.ctx, req)
	s.Require().NoError(err)
	dro := out.(*cocina.DRO)
	s.Equal(cocina.VocabBook, dro.Type)
	s.Require().NotNil(dro.Structural)
	s.Require().Len(dro.Structural.Contains, 1)
	s.Equal("Page 1", dro.Structural.Contains[0].Label)
	s.Require().Len(dro.Structural.Contains[0].Structural.Contains, 1)

	stored, err := s.store.Find(s.ctx, "druid:bc123df4567")
	s.Require().NoError(err)
	s.Equal([]string{"Process : Content Type : Book (rtl)"}, stored.Core().AdministrativeTags)
	s.Empty(s.mods.lookups, "no catkey, no catalog lookup")
}

func (s *ServiceSuite) TestRegister_DuplicateSourceID() {
	svc := s.registrationService("druid:bc123df4567", "druid:cd234fg5678")
	_, err := svc.Register(s.ctx, imageRequest("sul:8.559351"))
	s.Require().NoError(err)

	_, err = svc.Register(s.ctx, imageRequest("sul:8.559351"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "An object with the source ID 'sul:8.559351' has already been registered.")

	_, err = s.store.Find(s.ctx, "druid:cd234fg5678")
	s.True(errors.Is(err, sentinel.ErrNotFound))
	s.Len(s.publisher.events, 1)
}

func (s *ServiceSuite) TestRegister_MissingAdminPolicy() {
	svc := s.registrationService("druid:bc123df4567")
	req := imageRequest("sul:1")
	req.Administrative.HasAdminPolicy = "druid:zz000zz0000"
	req.Identification.CatalogLinks = []cocina.CatalogLink{{Catalog: "symphony", CatalogRecordID: "8888"}}

	_, err := svc.Register(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Contains(err.Error(), "druid:zz000zz0000")
	s.Empty(s.mods.lookups)

	_, err = s.store.Find(s.ctx, "druid:bc123df4567")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *ServiceSuite) TestRegister_TakenIdentifierIsReminted() {
	s.save(&repository.Item{Base: repository.Base{ID: "druid:bc123df4567"}})
	svc := s.registrationService("druid:bc123df4567", "druid:cd234fg5678")

	out, err := svc.Register(s.ctx, imageRequest("sul:1"))
	s.Require().NoError(err)
	s.Equal("druid:cd234fg5678", out.ExternalID())
}

func (s *ServiceSuite) TestRegister_CollectionAndAdminPolicy() {
	svc := s.registrationService("druid:bc123df4567", "druid:cd234fg5678")

	coll, err := svc.Register(s.ctx, cocina.Request{
		Type:           cocina.VocabCollection,
		Label:          "A collection",
		Administrative: cocina.RequestAdministrative{HasAdminPolicy: registrationAPO},
	})
	s.Require().NoError(err)
	s.IsType(&cocina.Collection{}, coll)

	apo, err := svc.Register(s.ctx, cocina.Request{
		Type:  cocina.VocabAdminPolicy,
		Label: "A policy",
		Administrative: cocina.RequestAdministrative{
			HasAdminPolicy:       registrationAPO,
			RegistrationWorkflow: "registrationWF",
			DefaultObjectRights:  "<rightsMetadata/>",
		},
	})
	s.Require().NoError(err)
	policy, ok := apo.(*cocina.AdminPolicy)
	s.Require().True(ok)
	s.Require().NotNil(policy.Administrative.RegistrationWorkflow)
	s.Equal("registrationWF", *policy.Administrative.RegistrationWorkflow)
}

func (s *ServiceSuite) TestRegister_InvalidRequests() {
	svc := s.registrationService("druid:bc123df4567")

	cases := []struct {
		name   string
		mutate func(*cocina.Request)
	}{
		{"unsupported type", func(r *cocina.Request) { r.Type = "http://cocina.sul.stanford.edu/models/agreement.jsonld" }},
		{"missing label", func(r *cocina.Request) { r.Label = "" }},
		{"missing admin policy", func(r *cocina.Request) { r.Administrative.HasAdminPolicy = "" }},
		{"item without source id", func(r *cocina.Request) { r.Identification.SourceID = "" }},
		{"malformed content metadata", func(r *cocina.Request) {
			r.Structural = &cocina.RequestStructural{ContentMetadata: "<notContent/>"}
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := imageRequest("sul:1")
			tc.mutate(&req)
			_, err := svc.Register(s.ctx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeBadRequest), err)
		})
	}
	s.Empty(s.publisher.events)
}

func TestMintDruid(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		id := MintDruid()
		assert.True(t, ValidDruid(id), id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
	assert.True(t, ValidDruid("druid:bc123df4567"))
	assert.False(t, ValidDruid("druid:ba123df4567"), "vowels are never minted")
	assert.False(t, ValidDruid("bc123df4567"))
	assert.False(t, ValidDruid("druid:bc123df456"))
}

func TestTranslateStore(t *testing.T) {
	assert.ErrorIs(t, translateStore("druid:x", context.Canceled), context.Canceled)
	assert.True(t, dErrors.HasCode(translateStore("druid:x", fmt.Errorf("get: %w", sentinel.ErrUnavailable)), dErrors.CodeUnavailable))
	assert.True(t, dErrors.HasCode(translateStore("druid:x", sentinel.ErrCorrupt), dErrors.CodeInternal))
	assert.False(t, errors.Is(translateStore("druid:x", sentinel.ErrCorrupt), sentinel.ErrNotFound))
	assert.True(t, dErrors.HasCode(translateStore("druid:x", fmt.Errorf("save: %w", sentinel.ErrConflict)), dErrors.CodeConflict))

	dup := translateStore("druid:x", &repository.DuplicateSourceIDError{SourceID: "sul:1", ExistingID: "druid:y"})
	assert.True(t, dErrors.HasCode(dup, dErrors.CodeConflict))
	var de *dErrors.Error
	if assert.ErrorAs(t, dup, &de) {
		assert.Equal(t, "An object with the source ID 'sul:1' has already been registered.", de.Message)
	}
}

package cocina

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"dor/internal/releasetags"
	"dor/internal/repository"
)

// EmbargoDateLayout renders embargo release dates as calendar date and time
// with a numeric UTC offset.
const EmbargoDateLayout = "2006-01-02T15:04:05-07:00"

// hydrusLabel marks objects deposited through Hydrus, whose label is their title.
const hydrusLabel = "Hydrus"

// ReleaseResolver computes release state for an object.
type ReleaseResolver interface {
	Resolve(ctx context.Context, node releasetags.Node) (releasetags.State, error)
}

// Mapper builds Cocina representations. It reads release state through the
// resolver on every call and holds nothing between calls.
type Mapper struct {
	resolver ReleaseResolver
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Mapper)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) {
		m.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Mapper) {
		m.metrics = metrics
	}
}

func NewMapper(resolver ReleaseResolver, opts ...Option) (*Mapper, error) {
	if resolver == nil {
		return nil, errors.New("release resolver is required")
	}
	m := &Mapper{
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Build maps obj to exactly one of DRO, Collection or AdminPolicy.
func (m *Mapper) Build(ctx context.Context, obj repository.Object) (Object, error) {
	if obj == nil {
		return nil, &UnsupportedObjectTypeError{Variant: "<nil>"}
	}
	variant := string(obj.Kind())

	var (
		out Object
		err error
	)
	switch o := obj.(type) {
	case *repository.Etd:
		// ETDs keep their structure in a form the mapper does not read.
		out, err = m.dro(ctx, &o.Item, etdTitle(o), false)
	case *repository.Item:
		out, err = m.dro(ctx, o, fullTitle(&o.Base), true)
	case *repository.Collection:
		out, err = m.collection(ctx, o)
	case *repository.AdminPolicy:
		out = adminPolicy(o)
	default:
		err = &UnsupportedObjectTypeError{Variant: variant}
	}
	if err != nil {
		m.metrics.IncrementFailure(variant)
		m.logger.WarnContext(ctx, "cocina mapping failed",
			"object_id", obj.Core().ID,
			"variant", variant,
			"error", err,
		)
		return nil, err
	}
	m.metrics.IncrementMapped(variant)
	return out, nil
}

func (m *Mapper) dro(ctx context.Context, item *repository.Item, title string, withStructure bool) (*DRO, error) {
	admin, err := m.administrative(ctx, item)
	if err != nil {
		return nil, err
	}
	dro := &DRO{
		ExternalIdentifier: item.ID,
		Type:               droType(item.ContentTypeTag()),
		Label:              item.Label,
		Version:            item.Version,
		Administrative:     admin,
		Description:        description(title),
	}
	if item.EmbargoReleaseDate != nil && !item.EmbargoReleaseDate.IsZero() {
		dro.Access = &Access{EmbargoReleaseDate: item.EmbargoReleaseDate.UTC().Format(EmbargoDateLayout)}
	}
	if withStructure && item.Content != nil {
		dro.Structural = &Structural{Contains: fileSets(item.ID, item.Version, item.Content)}
	}
	return dro, nil
}

func (m *Mapper) collection(ctx context.Context, c *repository.Collection) (*Collection, error) {
	admin, err := m.administrative(ctx, c)
	if err != nil {
		return nil, err
	}
	return &Collection{
		ExternalIdentifier: c.ID,
		Type:               VocabCollection,
		Label:              c.Label,
		Version:            c.Version,
		Administrative:     admin,
		Description:        description(fullTitle(&c.Base)),
	}, nil
}

func adminPolicy(apo *repository.AdminPolicy) *AdminPolicy {
	return &AdminPolicy{
		ExternalIdentifier: apo.ID,
		Type:               VocabAdminPolicy,
		Label:              apo.Label,
		Version:            apo.Version,
		Administrative: AdminPolicyAdministrative{
			DefaultObjectRights:  apo.DefaultObjectRights,
			RegistrationWorkflow: optional(apo.RegistrationWorkflow),
			HasAdminPolicy:       optional(apo.AdminPolicyID),
		},
		Description: description(fullTitle(&apo.Base)),
	}
}

func (m *Mapper) administrative(ctx context.Context, obj repository.Object) (Administrative, error) {
	state, err := m.resolver.Resolve(ctx, repository.NodeOf(obj))
	if err != nil {
		return Administrative{}, fmt.Errorf("resolving release tags for %s: %w", obj.Core().ID, err)
	}
	return Administrative{
		ReleaseTags:    releaseTags(state),
		HasAdminPolicy: optional(obj.Core().AdminPolicyID),
	}, nil
}

func releaseTags(state releasetags.State) []ReleaseTag {
	tags := state.Tags()
	out := make([]ReleaseTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, ReleaseTag{
			To:      t.To,
			What:    t.What,
			Date:    t.When.UTC().Format(time.RFC3339),
			Who:     t.Who,
			Release: t.Release,
		})
	}
	return out
}

// droType classifies a content type label. Exact matches are tried before
// prefixes; anything else is a generic object.
func droType(contentType string) string {
	if v, ok := exactTypes[contentType]; ok {
		return v
	}
	for _, p := range prefixTypes {
		if strings.HasPrefix(contentType, p.prefix) {
			return p.vocab
		}
	}
	return VocabObject
}

func fileSets(parentID string, version int, cm *repository.ContentMetadata) []FileSet {
	sets := make([]FileSet, 0, len(cm.Resources))
	for _, r := range cm.Resources {
		fs := FileSet{
			ExternalIdentifier: r.ID,
			Type:               VocabFileset,
			Label:              r.Label,
			Version:            version,
		}
		for _, f := range r.Files {
			fs.Structural.Contains = append(fs.Structural.Contains, File{
				ExternalIdentifier: parentID + "/" + f.ID,
				Type:               VocabFile,
				Label:              f.ID,
				Version:            version,
			})
		}
		sets = append(sets, fs)
	}
	return sets
}

func etdTitle(etd *repository.Etd) string {
	if len(etd.PropertyTitles) == 0 {
		return ""
	}
	return etd.PropertyTitles[0]
}

func fullTitle(b *repository.Base) string {
	if b.Label == hydrusLabel {
		return b.Label
	}
	return b.FullTitle
}

func description(title string) Description {
	return Description{Title: []Title{{Primary: true, TitleFull: title}}}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

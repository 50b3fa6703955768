// Package marcxml serves catalog records by catkey or barcode as validated
// MARC, MARCXML or MODS.
package marcxml

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"dor/internal/catalog"
	"dor/internal/marc"
	dErrors "dor/pkg/domain-errors"
)

// CatalogClient is the part of the catalog client the service needs.
type CatalogClient interface {
	FetchBib(ctx context.Context, catkey string) (*catalog.Bib, error)
	ResolveBarcode(ctx context.Context, barcode string) (string, error)
	FetchByBarcode(ctx context.Context, barcode string) (string, *catalog.Bib, error)
}

// Lookup identifies a record by catkey or, failing that, by barcode.
type Lookup struct {
	Catkey  string
	Barcode string
}

type Service struct {
	client      CatalogClient
	transformer marc.Transformer
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTransformer swaps the MARC to MODS engine.
func WithTransformer(t marc.Transformer) Option {
	return func(s *Service) {
		s.transformer = t
	}
}

func New(client CatalogClient, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("catalog client is required")
	}
	s := &Service{
		client:      client,
		transformer: marc.NewModsTransformer(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Catkey returns the catkey the lookup refers to, resolving a barcode when
// no catkey was given.
func (s *Service) Catkey(ctx context.Context, lookup Lookup) (string, error) {
	catkey := strings.TrimSpace(lookup.Catkey)
	if catkey != "" {
		return catkey, nil
	}
	barcode := strings.TrimSpace(lookup.Barcode)
	if barcode == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "must supply either a catkey or barcode")
	}
	catkey, err := s.client.ResolveBarcode(ctx, barcode)
	if err != nil {
		return "", s.translate(ctx, "", err)
	}
	return catkey, nil
}

// Record fetches and validates the MARC record. A barcode lookup resolves
// and fetches in one catalog round.
func (s *Service) Record(ctx context.Context, lookup Lookup) (*marc.ValidatedRecord, error) {
	var (
		catkey = strings.TrimSpace(lookup.Catkey)
		bib    *catalog.Bib
		err    error
	)
	switch barcode := strings.TrimSpace(lookup.Barcode); {
	case catkey != "":
		bib, err = s.client.FetchBib(ctx, catkey)
	case barcode != "":
		catkey, bib, err = s.client.FetchByBarcode(ctx, barcode)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "must supply either a catkey or barcode")
	}
	if err != nil {
		return nil, s.translate(ctx, catkey, err)
	}
	rec, err := marc.NewValidated(catkey, bib)
	if err != nil {
		return nil, s.translate(ctx, catkey, err)
	}
	return rec, nil
}

func (s *Service) MARCXML(ctx context.Context, lookup Lookup) ([]byte, error) {
	rec, err := s.Record(ctx, lookup)
	if err != nil {
		return nil, err
	}
	out, err := rec.MarshalMARCXML()
	if err != nil {
		return nil, s.translate(ctx, rec.Catkey(), &marc.TransformError{Catkey: rec.Catkey(), Err: err})
	}
	return out, nil
}

func (s *Service) MODS(ctx context.Context, lookup Lookup) ([]byte, error) {
	rec, err := s.Record(ctx, lookup)
	if err != nil {
		return nil, err
	}
	out, err := marc.ToMODS(ctx, s.transformer, rec)
	if err != nil {
		return nil, s.translate(ctx, rec.Catkey(), err)
	}
	return out, nil
}

// translate maps catalog and MARC failures onto domain codes. The original
// error stays in the chain for errors.As.
func (s *Service) translate(ctx context.Context, catkey string, err error) error {
	var (
		incomplete *catalog.RecordIncompleteError
		upstream   *catalog.UpstreamError
		invalid    *marc.InvalidMarcError
		transform  *marc.TransformError
	)
	switch {
	case errors.As(err, &incomplete):
		return dErrors.Wrap(err, dErrors.CodeUpstream, incomplete.Error())
	case errors.As(err, &upstream):
		switch {
		case catalog.IsUnavailable(err):
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "Symphony is unavailable: "+upstream.Message)
		case upstream.Category == catalog.ErrorNotFound:
			return dErrors.Wrap(err, dErrors.CodeNotFound, upstream.Message)
		default:
			return dErrors.Wrap(err, dErrors.CodeUpstream, upstream.Message)
		}
	case errors.As(err, &invalid):
		s.logger.WarnContext(ctx, "invalid MARC record",
			"catkey", catkey,
			"invariant", invalid.Invariant,
		)
		return dErrors.Wrap(err, dErrors.CodeInvalidRecord, invalid.Error())
	case errors.As(err, &transform):
		s.logger.ErrorContext(ctx, "MARC transform failed",
			"catkey", catkey,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transform MARC record")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "catalog lookup failed")
	}
}

package loader

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iduprojects/insert-services/pkg/models"
)

// Options is the operator-facing configuration of one document load.
type Options struct {
	// City selects the target city by name or code.
	City string
	// ServiceType selects the loaded service type by name or code.
	ServiceType string
	// Mapping binds record fields to source columns.
	Mapping FieldMapping
	// AddressPrefixes lists accepted address prefixes; an explicit empty
	// string accepts every address.
	AddressPrefixes []string
	// NewAddressPrefix replaces the matched prefix during normalization.
	NewAddressPrefix string
	// SkipRows are zero-based row indices excluded by the operator; they
	// report the skipped outcome.
	SkipRows []int
	// DryRun executes every statement but rolls the transaction back.
	DryRun bool
	// Workers bounds the parallel validation phase. Zero means 4.
	Workers int
	// LogEvery reports progress after each N processed rows. Zero disables.
	LogEvery int
}

func (o *Options) skipSet() map[int]struct{} {
	if len(o.SkipRows) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(o.SkipRows))
	for _, i := range o.SkipRows {
		set[i] = struct{}{}
	}
	return set
}

func (o *Options) workers() int {
	if o.Workers <= 0 {
		return 4
	}
	return o.Workers
}

// Session carries the resolved state of one document load through the
// pipeline stages. It is created per load and discarded with the report;
// nothing about the current load lives in package state.
type Session struct {
	ID          uuid.UUID
	Options     Options
	City        *models.City
	ServiceType *models.ServiceType
	Mapper      *ColumnMapper
	defaultName string
	skip        map[int]struct{}
}

func (l *ServiceLoader) newSession(ctx context.Context, opts Options) (*Session, error) {
	city, err := l.cities.GetByNameOrCode(ctx, opts.City)
	if err != nil {
		return nil, fmt.Errorf("resolve city %q: %w", opts.City, err)
	}

	serviceType, err := l.serviceTypes.GetByNameOrCode(ctx, opts.ServiceType)
	if err != nil {
		return nil, fmt.Errorf("resolve service type %q: %w", opts.ServiceType, err)
	}

	defaultName := fmt.Sprintf("(%s unnamed)", serviceType.Name)
	normalizer := NewPrefixNormalizer(opts.AddressPrefixes, opts.NewAddressPrefix)
	mapper := NewColumnMapper(opts.Mapping, normalizer, serviceType.IsBuilding, defaultName)

	return &Session{
		ID:          uuid.New(),
		Options:     opts,
		City:        city,
		ServiceType: serviceType,
		Mapper:      mapper,
		defaultName: defaultName,
		skip:        opts.skipSet(),
	}, nil
}

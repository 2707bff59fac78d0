package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"umid/internal/umid/models"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
)

// hydrateConcurrency bounds parallel access-history reads per listing.
const hydrateConcurrency = 8

// GetPatientUMIDs lists every UMID ever issued to the patient, deactivated
// ones included. Only the patient themself may call it; clinical roles read
// data exclusively through verified access requests.
func (s *Service) GetPatientUMIDs(ctx context.Context, caller models.Caller, patientID id.PatientID) ([]*models.UMID, error) {
	ctx, span := tracer.Start(ctx, "UMID.Query.GetPatientUMIDs")
	defer span.End()

	if patientID.IsNil() {
		return nil, recordErr(span, dErrors.New(dErrors.CodeBadRequest, "patient id is required"))
	}
	if caller.ID.AsPatient() != patientID {
		return nil, recordErr(span, dErrors.New(dErrors.CodeForbidden, "patients may only list their own umids"))
	}

	umids, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to list umids"))
	}
	out, err := s.redactAndHydrate(ctx, umids)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return out, nil
}

// GetAllUMIDs is the administrative listing.
func (s *Service) GetAllUMIDs(ctx context.Context, caller models.Caller, filter models.Filter) ([]*models.UMID, error) {
	ctx, span := tracer.Start(ctx, "UMID.Query.GetAllUMIDs")
	defer span.End()

	if !caller.IsAdmin() {
		return nil, recordErr(span, dErrors.New(dErrors.CodeForbidden, "admin role required"))
	}

	umids, err := s.store.Query(ctx, filter.Normalized())
	if err != nil {
		return nil, recordErr(span, wrapUMIDErr(err, "failed to query umids"))
	}
	out, err := s.redactAndHydrate(ctx, umids)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return out, nil
}

// redactAndHydrate strips sealed secrets and fills AccessHistory from the
// access log, which owns those entries.
func (s *Service) redactAndHydrate(ctx context.Context, umids []*models.UMID) ([]*models.UMID, error) {
	out := make([]*models.UMID, len(umids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i, u := range umids {
		out[i] = u.Redacted()
		g.Go(func() error {
			ids, err := s.logs.IDs(gctx, u.ID)
			if err != nil {
				return wrapUMIDErr(err, "failed to read access history")
			}
			out[i].AccessHistory = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

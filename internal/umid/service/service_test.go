package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AccessLogReader,Sealer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"umid/internal/accesslog"
	logstore "umid/internal/accesslog/store"
	"umid/internal/platform/config"
	"umid/internal/totp"
	"umid/internal/umid/models"
	"umid/internal/umid/secrets"
	"umid/internal/umid/service"
	"umid/internal/umid/service/mocks"
	umidstore "umid/internal/umid/store"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/platform/sentinel"
	"umid/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *umidstore.InMemory
	logs    *logstore.InMemory
	sealer  *secrets.Sealer
	service *service.Service
	patient models.Caller
	admin   models.Caller
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), fixedNow)
	s.store = umidstore.NewInMemory()
	s.logs = logstore.NewInMemory()
	sealer, err := secrets.NewSealer("test-sealing-key")
	s.Require().NoError(err)
	s.sealer = sealer
	s.service = service.New(s.store, accesslog.NewPublisher(s.logs), s.sealer,
		service.WithConfig(config.Default().UMID))
	s.patient = models.Caller{ID: id.UserID(uuid.New()), Role: id.RolePatient}
	s.admin = models.Caller{ID: id.UserID(uuid.New()), Role: id.RoleAdmin}
}

func (s *ServiceSuite) issueRequest() service.IssueRequest {
	return service.IssueRequest{
		PatientID: s.patient.ID.AsPatient(),
		Data: models.MedicalData{
			BloodType: "O-",
			Allergies: []string{"penicillin"},
		},
		AllowedRoles: map[id.Role][]models.Field{
			id.RoleDoctor: {models.FieldBloodType, models.FieldAllergies},
		},
	}
}

func (s *ServiceSuite) issue() *service.IssueResult {
	res, err := s.service.Issue(s.ctx, s.patient, s.issueRequest())
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestIssue() {
	s.Run("returns the plaintext secret once and stores it sealed", func() {
		res := s.issue()

		s.NotEmpty(res.Secret.Reveal())
		s.Contains(res.ProvisioningURI, "otpauth://totp/")
		s.Nil(res.UMID.Security.SealedSecret)
		s.True(res.UMID.IsActive)
		s.Equal(1, res.UMID.Version)
		s.Equal(fixedNow, res.UMID.CreatedAt)

		stored, err := s.store.FindByID(s.ctx, res.UMID.ID)
		s.Require().NoError(err)
		s.NotEqual([]byte(res.Secret.Reveal()), stored.Security.SealedSecret)
		opened, err := s.sealer.Open(stored.Security.SealedSecret, models.SecretAAD(stored.ID))
		s.Require().NoError(err)
		s.Equal(res.Secret, opened)
	})

	s.Run("applies configured defaults", func() {
		s.SetupTest()
		res := s.issue()
		sec := res.UMID.Security
		s.Equal(uint(30), sec.StepSeconds)
		s.Equal(uint(1), sec.ToleranceSteps)
		s.Equal(30*time.Second, sec.QRRotation)
		s.False(sec.EmergencyOverride)
	})

	s.Run("second issue conflicts and leaves the original unchanged", func() {
		s.SetupTest()
		first := s.issue()

		_, err := s.service.Issue(s.ctx, s.patient, s.issueRequest())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		stored, err := s.store.FindByID(s.ctx, first.UMID.ID)
		s.Require().NoError(err)
		s.True(stored.IsActive)
		s.Equal(first.UMID.Version, stored.Version)
		s.Equal(first.UMID.LinkedData, stored.LinkedData)
	})

	s.Run("admin may issue on behalf of a patient", func() {
		s.SetupTest()
		res, err := s.service.Issue(s.ctx, s.admin, s.issueRequest())
		s.Require().NoError(err)
		s.Equal(s.patient.ID.AsPatient(), res.UMID.PatientID)
	})

	s.Run("other callers are forbidden", func() {
		s.SetupTest()
		doctor := models.Caller{ID: id.UserID(uuid.New()), Role: id.RoleDoctor}
		_, err := s.service.Issue(s.ctx, doctor, s.issueRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects tolerance above the maximum", func() {
		s.SetupTest()
		req := s.issueRequest()
		tolerance := uint(9)
		req.ToleranceSteps = &tolerance
		_, err := s.service.Issue(s.ctx, s.patient, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown roles in allowed roles", func() {
		s.SetupTest()
		req := s.issueRequest()
		req.AllowedRoles = map[id.Role][]models.Field{"janitor": {models.FieldBloodType}}
		_, err := s.service.Issue(s.ctx, s.patient, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestConcurrentIssueKeepsOneActive() {
	const callers = 40
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Issue(s.ctx, s.patient, s.issueRequest())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(callers-1), conflicts.Load())

	active := true
	umids, err := s.store.Query(s.ctx, models.Filter{IsActive: &active})
	s.Require().NoError(err)
	s.Len(umids, 1)
}

func (s *ServiceSuite) TestUpdateLinkedData() {
	s.Run("creates a new version", func() {
		res := s.issue()
		later := requestcontext.WithTime(s.ctx, fixedNow.Add(time.Hour))
		medications := []string{"metformin"}

		updated, err := s.service.UpdateLinkedData(later, s.patient, res.UMID.ID, models.MedicalDataUpdate{
			Medications: &medications,
		})
		s.Require().NoError(err)
		s.Equal(2, updated.LinkedData.Version)
		s.Equal([]string{"metformin"}, updated.LinkedData.Data.Medications)
		s.Equal("O-", updated.LinkedData.Data.BloodType)
		s.Equal(fixedNow.Add(time.Hour), updated.UpdatedAt)
		s.Nil(updated.Security.SealedSecret)

		history, err := s.service.LinkedDataHistory(s.ctx, s.patient, res.UMID.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Empty(history[0].Data.Medications)
		s.Equal([]string{"metformin"}, history[1].Data.Medications)
	})

	s.Run("deactivated umid is not found", func() {
		s.SetupTest()
		res := s.issue()
		s.Require().NoError(s.service.Deactivate(s.ctx, s.patient, res.UMID.ID))

		bloodType := "A+"
		_, err := s.service.UpdateLinkedData(s.ctx, s.patient, res.UMID.ID, models.MedicalDataUpdate{BloodType: &bloodType})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown umid is not found", func() {
		bloodType := "A+"
		_, err := s.service.UpdateLinkedData(s.ctx, s.patient, id.NewUMIDID(), models.MedicalDataUpdate{BloodType: &bloodType})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another patient cannot update", func() {
		s.SetupTest()
		res := s.issue()
		other := models.Caller{ID: id.UserID(uuid.New()), Role: id.RolePatient}
		bloodType := "A+"
		_, err := s.service.UpdateLinkedData(s.ctx, other, res.UMID.ID, models.MedicalDataUpdate{BloodType: &bloodType})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid data is rejected without a new version", func() {
		s.SetupTest()
		res := s.issue()
		bloodType := "Z9"
		_, err := s.service.UpdateLinkedData(s.ctx, s.patient, res.UMID.ID, models.MedicalDataUpdate{BloodType: &bloodType})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		history, err := s.service.LinkedDataHistory(s.ctx, s.patient, res.UMID.ID)
		s.Require().NoError(err)
		s.Len(history, 1)
	})

	s.Run("empty update is a bad request", func() {
		_, err := s.service.UpdateLinkedData(s.ctx, s.patient, id.NewUMIDID(), models.MedicalDataUpdate{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestUpdateSecuritySettings() {
	res := s.issue()
	override := true
	updated, err := s.service.UpdateSecuritySettings(s.ctx, s.admin, res.UMID.ID, models.SecurityUpdate{
		EmergencyOverride: &override,
		AllowedRoles:      map[id.Role][]models.Field{id.RoleNurse: {}},
	})
	s.Require().NoError(err)
	s.True(updated.Security.EmergencyOverride)
	s.Equal(map[id.Role][]models.Field{id.RoleNurse: {}}, updated.Security.AllowedRoles)

	stored, err := s.store.FindByID(s.ctx, res.UMID.ID)
	s.Require().NoError(err)
	opened, err := s.sealer.Open(stored.Security.SealedSecret, models.SecretAAD(stored.ID))
	s.Require().NoError(err)
	s.Equal(res.Secret, opened, "secret survives settings changes")
}

func (s *ServiceSuite) TestDeactivateIsIdempotent() {
	res := s.issue()

	s.Require().NoError(s.service.Deactivate(s.ctx, s.patient, res.UMID.ID))
	first, err := s.store.FindByID(s.ctx, res.UMID.ID)
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, fixedNow.Add(time.Hour))
	s.Require().NoError(s.service.Deactivate(later, s.patient, res.UMID.ID))
	second, err := s.store.FindByID(s.ctx, res.UMID.ID)
	s.Require().NoError(err)

	s.False(second.IsActive)
	s.Equal(first.Version, second.Version)
	s.Equal(first.DeactivatedAt, second.DeactivatedAt)

	s.Run("patient can issue again after deactivation", func() {
		again, err := s.service.Issue(s.ctx, s.patient, s.issueRequest())
		s.Require().NoError(err)
		s.NotEqual(res.UMID.ID, again.UMID.ID)
	})

	s.Run("unknown umid is not found", func() {
		err := s.service.Deactivate(s.ctx, s.patient, id.NewUMIDID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestGetAccessLogs() {
	res := s.issue()
	accessor := id.UserID(uuid.New())
	for i := range 3 {
		s.Require().NoError(s.logs.Append(s.ctx, accesslog.Entry{
			ID:            id.NewAccessLogID(),
			UMIDID:        res.UMID.ID,
			AccessorID:    accessor,
			AccessorRole:  id.RoleDoctor,
			AccessTime:    fixedNow.Add(time.Duration(i) * time.Minute),
			FailureReason: accesslog.ReasonInvalidCode,
		}))
	}

	s.Run("newest first with limit", func() {
		entries, err := s.service.GetAccessLogs(s.ctx, s.patient, res.UMID.ID, 2)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(fixedNow.Add(2*time.Minute), entries[0].AccessTime)
		s.Equal(fixedNow.Add(time.Minute), entries[1].AccessTime)
	})

	s.Run("non-positive limit uses default", func() {
		entries, err := s.service.GetAccessLogs(s.ctx, s.admin, res.UMID.ID, 0)
		s.Require().NoError(err)
		s.Len(entries, 3)
	})

	s.Run("clinical roles cannot read logs directly", func() {
		doctor := models.Caller{ID: accessor, Role: id.RoleDoctor}
		_, err := s.service.GetAccessLogs(s.ctx, doctor, res.UMID.ID, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestCurrentCode() {
	res := s.issue()

	view, err := s.service.CurrentCode(s.ctx, s.patient, res.UMID.ID)
	s.Require().NoError(err)

	expected, err := totp.CurrentCode(res.Secret, fixedNow, 30)
	s.Require().NoError(err)
	s.Equal(expected, view.Code)
	s.Equal("umid:"+res.UMID.ID.String()+":"+expected, view.QRPayload)
	s.Equal(fixedNow.Add(30*time.Second), view.ExpiresAt)

	s.Run("admin never sees codes", func() {
		_, err := s.service.CurrentCode(s.ctx, s.admin, res.UMID.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestQueryGateway() {
	first := s.issue()
	s.Require().NoError(s.service.Deactivate(s.ctx, s.patient, first.UMID.ID))
	second, err := s.service.Issue(requestcontext.WithTime(s.ctx, fixedNow.Add(time.Hour)), s.patient, s.issueRequest())
	s.Require().NoError(err)
	s.Require().NoError(s.logs.Append(s.ctx, accesslog.Entry{
		ID:            id.NewAccessLogID(),
		UMIDID:        second.UMID.ID,
		AccessorID:    id.UserID(uuid.New()),
		AccessorRole:  id.RoleNurse,
		AccessTime:    fixedNow,
		FailureReason: accesslog.ReasonExpiredCode,
	}))

	s.Run("patient lists own umids including deactivated", func() {
		umids, err := s.service.GetPatientUMIDs(s.ctx, s.patient, s.patient.ID.AsPatient())
		s.Require().NoError(err)
		s.Require().Len(umids, 2)
		for _, u := range umids {
			s.Nil(u.Security.SealedSecret)
		}
		s.Equal(first.UMID.ID, umids[0].ID)
		s.False(umids[0].IsActive)
		s.Empty(umids[0].AccessHistory)
		s.Equal(second.UMID.ID, umids[1].ID)
		s.Len(umids[1].AccessHistory, 1)
	})

	s.Run("patient cannot list another patient", func() {
		_, err := s.service.GetPatientUMIDs(s.ctx, s.patient, id.PatientID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("clinical roles cannot list", func() {
		doctor := models.Caller{ID: id.UserID(uuid.New()), Role: id.RoleDoctor}
		_, err := s.service.GetPatientUMIDs(s.ctx, doctor, s.patient.ID.AsPatient())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.service.GetAllUMIDs(s.ctx, doctor, models.Filter{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin filters by active flag", func() {
		inactive := false
		umids, err := s.service.GetAllUMIDs(s.ctx, s.admin, models.Filter{IsActive: &inactive})
		s.Require().NoError(err)
		s.Require().Len(umids, 1)
		s.Equal(first.UMID.ID, umids[0].ID)
		s.Nil(umids[0].Security.SealedSecret)
	})
}

func TestService_StoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	logs := mocks.NewMockAccessLogReader(ctrl)
	sealer := mocks.NewMockSealer(ctrl)
	svc := service.New(store, logs, sealer)

	patient := models.Caller{ID: id.UserID(uuid.New()), Role: id.RolePatient}
	ctx := context.Background()

	t.Run("store outage on issue surfaces as store unavailable", func(t *testing.T) {
		sealer.EXPECT().Seal(gomock.Any(), gomock.Any()).Return([]byte("sealed"), nil)
		store.EXPECT().CreateIfNoActive(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

		_, err := svc.Issue(ctx, patient, service.IssueRequest{PatientID: patient.ID.AsPatient()})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("sealing failure aborts issuance before any write", func(t *testing.T) {
		sealer.EXPECT().Seal(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to seal secret"))

		_, err := svc.Issue(ctx, patient, service.IssueRequest{PatientID: patient.ID.AsPatient()})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("missing umid maps to not found", func(t *testing.T) {
		store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := svc.GetAccessLogs(ctx, patient, id.NewUMIDID(), 10)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("log store outage propagates", func(t *testing.T) {
		u := &models.UMID{ID: id.NewUMIDID(), PatientID: patient.ID.AsPatient(), IsActive: true}
		store.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		logs.EXPECT().List(gomock.Any(), u.ID, 50).Return(nil, errors.New("timeout"))

		_, err := svc.GetAccessLogs(ctx, patient, u.ID, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("limit is clamped to the maximum", func(t *testing.T) {
		u := &models.UMID{ID: id.NewUMIDID(), PatientID: patient.ID.AsPatient(), IsActive: true}
		store.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
		logs.EXPECT().List(gomock.Any(), u.ID, 500).Return([]accesslog.Entry{}, nil)

		_, err := svc.GetAccessLogs(ctx, patient, u.ID, 10_000)
		assert.NoError(t, err)
	})
}

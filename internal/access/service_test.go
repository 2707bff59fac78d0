package access_test

//go:generate mockgen -source=ports/ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"umid/internal/access"
	"umid/internal/access/mocks"
	"umid/internal/accesslog"
	logstore "umid/internal/accesslog/store"
	"umid/internal/throttle"
	throttlestore "umid/internal/throttle/store"
	"umid/internal/totp"
	"umid/internal/umid/models"
	"umid/internal/umid/secrets"
	"umid/internal/umid/service"
	umidstore "umid/internal/umid/store"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/platform/sentinel"
	"umid/pkg/requestcontext"
	"umid/pkg/testutil"
)

var t0 = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type harness struct {
	ctx       context.Context
	logs      *logstore.InMemory
	lifecycle *service.Service
	engine    *access.Service
	patient   models.Caller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	umids := umidstore.NewInMemory()
	logs := logstore.NewInMemory()
	publisher := accesslog.NewPublisher(logs)
	sealer, err := secrets.NewSealer("access-test-key")
	require.NoError(t, err)
	limiter, err := throttle.New(throttlestore.NewInMemory(), throttle.WithLimits(3, time.Minute))
	require.NoError(t, err)

	return &harness{
		ctx:       requestcontext.WithTime(context.Background(), t0),
		logs:      logs,
		lifecycle: service.New(umids, publisher, sealer),
		engine:    access.New(umids, sealer, publisher, access.WithThrottle(limiter)),
		patient:   models.Caller{ID: id.UserID(uuid.New()), Role: id.RolePatient},
	}
}

func (h *harness) issue(t *testing.T, roles map[id.Role][]models.Field, override bool) *service.IssueResult {
	t.Helper()
	res, err := h.lifecycle.Issue(h.ctx, h.patient, service.IssueRequest{
		PatientID: h.patient.ID.AsPatient(),
		Data: models.MedicalData{
			FullName:    "Ada Patient",
			BloodType:   "AB+",
			Allergies:   []string{"latex"},
			Medications: []string{"warfarin"},
			EmergencyContacts: []models.EmergencyContact{
				{Name: "Sam", Relationship: "sibling", Phone: "+15550100"},
			},
		},
		AllowedRoles:      roles,
		EmergencyOverride: &override,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) codeAt(t *testing.T, secret totp.Secret, at time.Time) string {
	t.Helper()
	code, err := totp.CurrentCode(secret, at, 30)
	require.NoError(t, err)
	return code
}

func (h *harness) request(t *testing.T, umidID id.UMIDID, code string, role id.Role, accessor id.UserID) *access.Result {
	t.Helper()
	res, err := h.engine.RequestAccess(h.ctx, access.Request{
		UMIDID:       umidID,
		Code:         code,
		AccessorRole: role,
		AccessorID:   accessor,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) logsFor(t *testing.T, umidID id.UMIDID) []accesslog.Entry {
	t.Helper()
	entries, err := h.logs.ListByUMID(h.ctx, umidID, 100)
	require.NoError(t, err)
	return entries
}

func TestRequestAccess_Scenarios(t *testing.T) {
	testutil.Given(t, "a UMID allowing doctors blood type and allergies", func(t *testing.T) {
		h := newHarness(t)
		issued := h.issue(t, map[id.Role][]models.Field{
			id.RoleDoctor: {models.FieldBloodType, models.FieldAllergies},
		}, true)
		code := h.codeAt(t, issued.Secret, t0)

		testutil.When(t, "a doctor presents the current code", func(t *testing.T) {
			doctor := id.UserID(uuid.New())
			res := h.request(t, issued.UMID.ID, code, id.RoleDoctor, doctor)

			testutil.Then(t, "exactly blood type and allergies are released", func(t *testing.T) {
				assert.True(t, res.Verified)
				assert.Equal(t, access.OutcomeGranted, res.Outcome)
				assert.Equal(t, accesslog.GrantRole, res.GrantBasis)
				assert.ElementsMatch(t, []models.Field{models.FieldBloodType, models.FieldAllergies}, res.ScopeGranted)
				assert.ElementsMatch(t, []models.Field{models.FieldBloodType, models.FieldAllergies}, res.Data.Fields())
				assert.Equal(t, "AB+", res.Data[models.SectionMedical][models.FieldBloodType])
			})

			testutil.Then(t, "a verified entry records the granted fields", func(t *testing.T) {
				entries := h.logsFor(t, issued.UMID.ID)
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Verified)
				assert.Equal(t, res.LogID, entries[0].ID)
				assert.Equal(t, doctor, entries[0].AccessorID)
				assert.ElementsMatch(t, res.ScopeGranted, entries[0].ScopeGranted)
				assert.Empty(t, entries[0].FailureReason)
				assert.Equal(t, t0, entries[0].AccessTime)
			})
		})

		testutil.When(t, "a nurse who is not listed presents the code with override enabled", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, code, id.RoleNurse, id.UserID(uuid.New()))

			testutil.Then(t, "only the emergency subset is released", func(t *testing.T) {
				assert.True(t, res.Verified)
				assert.Equal(t, accesslog.GrantEmergencyOverride, res.GrantBasis)
				assert.ElementsMatch(t, models.EmergencyFields, res.ScopeGranted)
				assert.NotContains(t, res.Data.Fields(), models.FieldMedications)
				assert.Contains(t, res.Data.Fields(), models.FieldEmergencyContacts)
			})
		})
	})

	testutil.Given(t, "a UMID with one step of tolerance", func(t *testing.T) {
		h := newHarness(t)
		issued := h.issue(t, map[id.Role][]models.Field{id.RoleDoctor: {models.FieldBloodType}}, false)

		testutil.When(t, "a code from sixty seconds ago is presented", func(t *testing.T) {
			stale := h.codeAt(t, issued.Secret, t0.Add(-60*time.Second))
			res := h.request(t, issued.UMID.ID, stale, id.RoleDoctor, id.UserID(uuid.New()))

			testutil.Then(t, "verification fails as expired and is logged", func(t *testing.T) {
				assert.False(t, res.Verified)
				assert.Equal(t, access.OutcomeDenied, res.Outcome)
				assert.Equal(t, accesslog.ReasonExpiredCode, res.FailureReason)
				assert.Empty(t, res.ScopeGranted)
				assert.Nil(t, res.Data)

				entries := h.logsFor(t, issued.UMID.ID)
				require.Len(t, entries, 1)
				assert.False(t, entries[0].Verified)
				assert.Equal(t, accesslog.ReasonExpiredCode, entries[0].FailureReason)
				assert.Empty(t, entries[0].ScopeGranted)
			})
		})

		testutil.When(t, "a code from the previous step is presented", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, h.codeAt(t, issued.Secret, t0.Add(-30*time.Second)), id.RoleDoctor, id.UserID(uuid.New()))

			testutil.Then(t, "it is accepted within tolerance", func(t *testing.T) {
				assert.True(t, res.Verified)
			})
		})

		testutil.When(t, "a malformed code is presented", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, "12ab", id.RoleDoctor, id.UserID(uuid.New()))

			testutil.Then(t, "it fails closed as malformed", func(t *testing.T) {
				assert.False(t, res.Verified)
				assert.Equal(t, accesslog.ReasonMalformedCode, res.FailureReason)
			})
		})
	})

	testutil.Given(t, "a role listed with an explicitly empty subset", func(t *testing.T) {
		h := newHarness(t)
		issued := h.issue(t, map[id.Role][]models.Field{id.RoleLabTech: {}}, true)

		testutil.When(t, "a lab tech presents a valid code", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, h.codeAt(t, issued.Secret, t0), id.RoleLabTech, id.UserID(uuid.New()))

			testutil.Then(t, "verification succeeds with zero data, distinct from failure", func(t *testing.T) {
				assert.True(t, res.Verified)
				assert.Equal(t, access.OutcomeGrantedEmpty, res.Outcome)
				assert.Equal(t, accesslog.GrantExplicitEmpty, res.GrantBasis)
				assert.Empty(t, res.ScopeGranted)
				assert.Empty(t, res.Data.Fields())

				entries := h.logsFor(t, issued.UMID.ID)
				require.Len(t, entries, 1)
				assert.True(t, entries[0].Verified)
				assert.Equal(t, accesslog.GrantExplicitEmpty, entries[0].GrantBasis)
			})
		})
	})

	testutil.Given(t, "an unlisted role and no emergency override", func(t *testing.T) {
		h := newHarness(t)
		issued := h.issue(t, map[id.Role][]models.Field{id.RoleDoctor: {models.FieldBloodType}}, false)

		testutil.When(t, "a nurse presents a valid code", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, h.codeAt(t, issued.Secret, t0), id.RoleNurse, id.UserID(uuid.New()))

			testutil.Then(t, "the nurse is verified but not permitted any data", func(t *testing.T) {
				assert.True(t, res.Verified)
				assert.Equal(t, access.OutcomeRoleNotPermitted, res.Outcome)
				assert.Empty(t, res.ScopeGranted)
			})
		})
	})

	testutil.Given(t, "a deactivated UMID", func(t *testing.T) {
		h := newHarness(t)
		issued := h.issue(t, map[id.Role][]models.Field{id.RoleDoctor: {models.FieldBloodType}}, true)
		require.NoError(t, h.lifecycle.Deactivate(h.ctx, h.patient, issued.UMID.ID))

		testutil.When(t, "a doctor presents an otherwise valid code", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, h.codeAt(t, issued.Secret, t0), id.RoleDoctor, id.UserID(uuid.New()))

			testutil.Then(t, "access is refused as inactive and still logged", func(t *testing.T) {
				assert.False(t, res.Verified)
				assert.Equal(t, accesslog.ReasonInactiveOrMissing, res.FailureReason)
				assert.Len(t, h.logsFor(t, issued.UMID.ID), 1)
			})
		})
	})

	testutil.Given(t, "a UMID id that was never issued", func(t *testing.T) {
		h := newHarness(t)
		missing := id.NewUMIDID()

		testutil.When(t, "access is requested", func(t *testing.T) {
			res := h.request(t, missing, "123456", id.RoleDoctor, id.UserID(uuid.New()))

			testutil.Then(t, "the attempt is logged against that id", func(t *testing.T) {
				assert.Equal(t, accesslog.ReasonInactiveOrMissing, res.FailureReason)
				assert.Len(t, h.logsFor(t, missing), 1)
			})
		})
	})

	testutil.Given(t, "an accessor who keeps presenting wrong codes", func(t *testing.T) {
		h := newHarness(t)
		issued := h.issue(t, map[id.Role][]models.Field{id.RoleDoctor: {models.FieldBloodType}}, false)
		doctor := id.UserID(uuid.New())
		valid := h.codeAt(t, issued.Secret, t0)
		wrong := "000000"
		if wrong == valid {
			wrong = "000001"
		}
		for range 3 {
			res := h.request(t, issued.UMID.ID, wrong, id.RoleDoctor, doctor)
			require.False(t, res.Verified)
		}

		testutil.When(t, "the limit is reached and the correct code is presented", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, valid, id.RoleDoctor, doctor)

			testutil.Then(t, "the attempt is throttled and logged separately", func(t *testing.T) {
				assert.False(t, res.Verified)
				assert.Equal(t, accesslog.ReasonRateLimited, res.FailureReason)
				entries := h.logsFor(t, issued.UMID.ID)
				require.Len(t, entries, 4)
				assert.Equal(t, accesslog.ReasonRateLimited, entries[0].FailureReason)
			})
		})

		testutil.When(t, "a different accessor presents the correct code", func(t *testing.T) {
			res := h.request(t, issued.UMID.ID, valid, id.RoleDoctor, id.UserID(uuid.New()))

			testutil.Then(t, "they are not affected", func(t *testing.T) {
				assert.True(t, res.Verified)
			})
		})
	})
}

func TestRequestAccess_ExactlyOneLogPerCall(t *testing.T) {
	h := newHarness(t)
	issued := h.issue(t, map[id.Role][]models.Field{id.RoleDoctor: {models.FieldBloodType}}, true)
	valid := h.codeAt(t, issued.Secret, t0)

	attempts := []struct {
		code string
		role id.Role
	}{
		{valid, id.RoleDoctor},
		{valid, id.RoleNurse},
		{"999999x", id.RoleDoctor},
		{"", id.RoleLabTech},
		{h.codeAt(t, issued.Secret, t0.Add(-5*time.Minute)), id.RoleAdmin},
	}
	for i, a := range attempts {
		h.request(t, issued.UMID.ID, a.code, a.role, id.UserID(uuid.New()))
		assert.Len(t, h.logsFor(t, issued.UMID.ID), i+1)
	}
}

func TestRequestAccess_Collaborators(t *testing.T) {
	umidID := id.NewUMIDID()
	accessor := id.UserID(uuid.New())
	req := access.Request{UMIDID: umidID, Code: "123456", AccessorRole: id.RoleDoctor, AccessorID: accessor}
	active := &models.UMID{
		ID:       umidID,
		IsActive: true,
		Security: models.SecuritySettings{SealedSecret: []byte("sealed"), StepSeconds: 30, ToleranceSteps: 1},
	}

	setup := func(t *testing.T) (*mocks.MockUMIDReader, *mocks.MockSecretOpener, *mocks.MockThrottle, *mocks.MockAuditLogger, *access.Service) {
		ctrl := gomock.NewController(t)
		umids := mocks.NewMockUMIDReader(ctrl)
		opener := mocks.NewMockSecretOpener(ctrl)
		limiter := mocks.NewMockThrottle(ctrl)
		audit := mocks.NewMockAuditLogger(ctrl)
		return umids, opener, limiter, audit, access.New(umids, opener, audit, access.WithThrottle(limiter))
	}

	t.Run("store outage is logged and surfaced", func(t *testing.T) {
		umids, _, _, audit, svc := setup(t)
		umids.EXPECT().FindByID(gomock.Any(), umidID).Return(nil, errors.New("connection reset"))
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e accesslog.Entry) (accesslog.Entry, error) {
				assert.Equal(t, accesslog.ReasonStoreUnavailable, e.FailureReason)
				assert.False(t, e.Verified)
				return e, nil
			})

		res, err := svc.RequestAccess(context.Background(), req)
		assert.Nil(t, res)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("audit failure on a verified attempt releases no data", func(t *testing.T) {
		umids, opener, limiter, audit, svc := setup(t)
		secret, err := totp.GenerateSecret()
		require.NoError(t, err)
		code, err := totp.CurrentCode(secret, t0, 30)
		require.NoError(t, err)
		ctx := requestcontext.WithTime(context.Background(), t0)

		umids.EXPECT().FindByID(gomock.Any(), umidID).Return(active, nil)
		limiter.EXPECT().Acquire(gomock.Any(), umidID, accessor).Return(&throttle.Result{Allowed: true, Limit: 5}, nil)
		opener.EXPECT().Open(active.Security.SealedSecret, models.SecretAAD(umidID)).Return(secret, nil)
		limiter.EXPECT().Clear(gomock.Any(), umidID, accessor).Return(nil)
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(accesslog.Entry{}, errors.New("disk full"))

		withCode := req
		withCode.Code = code
		res, err := svc.RequestAccess(ctx, withCode)
		assert.Nil(t, res)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("audit failure on a denied attempt is an error, not a result", func(t *testing.T) {
		umids, _, _, audit, svc := setup(t)
		umids.EXPECT().FindByID(gomock.Any(), umidID).Return(nil, sentinel.ErrNotFound)
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(accesslog.Entry{}, errors.New("disk full"))

		res, err := svc.RequestAccess(context.Background(), req)
		assert.Nil(t, res)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("throttle outage fails closed", func(t *testing.T) {
		umids, _, limiter, audit, svc := setup(t)
		umids.EXPECT().FindByID(gomock.Any(), umidID).Return(active, nil)
		limiter.EXPECT().Acquire(gomock.Any(), umidID, accessor).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "failed to reserve throttle attempt"))
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(accesslog.Entry{}, nil)

		_, err := svc.RequestAccess(context.Background(), req)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("wrong code keeps its reserved attempt", func(t *testing.T) {
		umids, opener, limiter, audit, svc := setup(t)
		secret, err := totp.GenerateSecret()
		require.NoError(t, err)

		umids.EXPECT().FindByID(gomock.Any(), umidID).Return(active, nil)
		limiter.EXPECT().Acquire(gomock.Any(), umidID, accessor).Return(&throttle.Result{Allowed: true}, nil)
		opener.EXPECT().Open(gomock.Any(), gomock.Any()).Return(secret, nil)
		limiter.EXPECT().Clear(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(accesslog.Entry{ID: id.NewAccessLogID()}, nil)

		withCode := req
		withCode.Code = "abcdef"
		res, err := svc.RequestAccess(context.Background(), withCode)
		require.NoError(t, err)
		assert.Equal(t, accesslog.ReasonMalformedCode, res.FailureReason)
	})

	t.Run("missing identity is logged against the umid before any lookup", func(t *testing.T) {
		_, _, _, audit, svc := setup(t)
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e accesslog.Entry) (accesslog.Entry, error) {
				assert.Equal(t, umidID, e.UMIDID)
				assert.True(t, e.AccessorID.IsNil())
				assert.Equal(t, accesslog.ReasonInternalError, e.FailureReason)
				assert.Empty(t, e.ScopeGranted)
				return e, nil
			})

		anon := req
		anon.AccessorID = id.UserID{}
		res, err := svc.RequestAccess(context.Background(), anon)
		assert.Nil(t, res)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown role is logged against the umid before any lookup", func(t *testing.T) {
		_, _, _, audit, svc := setup(t)
		audit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e accesslog.Entry) (accesslog.Entry, error) {
				assert.Equal(t, accessor, e.AccessorID)
				assert.Equal(t, accesslog.ReasonInternalError, e.FailureReason)
				return e, nil
			})

		bad := req
		bad.AccessorRole = id.Role("janitor")
		res, err := svc.RequestAccess(context.Background(), bad)
		assert.Nil(t, res)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("missing umid id writes no entry", func(t *testing.T) {
		_, _, _, _, svc := setup(t)
		noUMID := req
		noUMID.UMIDID = id.UMIDID{}
		_, err := svc.RequestAccess(context.Background(), noUMID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

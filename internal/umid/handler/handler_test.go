package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"umid/internal/accesslog"
	"umid/internal/totp"
	"umid/internal/umid/handler/mocks"
	"umid/internal/umid/models"
	"umid/internal/umid/service"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type UMIDHandlerSuite struct {
	suite.Suite
	router    chi.Router
	service   *mocks.MockService
	patientID string
	umidID    id.UMIDID
}

func TestUMIDHandlerSuite(t *testing.T) {
	suite.Run(t, new(UMIDHandlerSuite))
}

func (s *UMIDHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterAdmin(s.router)
	s.patientID = uuid.NewString()
	s.umidID = id.NewUMIDID()
}

func (s *UMIDHandlerSuite) asPatient(req *http.Request) *http.Request {
	return testutil.WithIdentity(req, s.patientID, id.RolePatient)
}

func (s *UMIDHandlerSuite) caller() models.Caller {
	userID, err := id.ParseUserID(s.patientID)
	s.Require().NoError(err)
	return models.Caller{ID: userID, Role: id.RolePatient}
}

func (s *UMIDHandlerSuite) TestIssue() {
	s.Run("defaults patient to the caller and returns the secret once", func() {
		s.service.EXPECT().Issue(gomock.Any(), s.caller(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ models.Caller, req service.IssueRequest) (*service.IssueResult, error) {
				assert.Equal(s.T(), s.caller().ID.AsPatient(), req.PatientID)
				assert.Equal(s.T(), []models.Field{models.FieldBloodType}, req.AllowedRoles[id.RoleDoctor])
				require.NotNil(s.T(), req.QRRotation)
				assert.Equal(s.T(), time.Minute, *req.QRRotation)
				return &service.IssueResult{
					UMID:            &models.UMID{ID: s.umidID, PatientID: req.PatientID, IsActive: true},
					Secret:          totp.Secret("JBSWY3DPEHPK3PXP"),
					ProvisioningURI: "otpauth://totp/UMID:x",
				}, nil
			})

		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPost, "/umids", map[string]any{
			"data":                map[string]any{"bloodType": "O+"},
			"allowed_roles":       map[string][]string{"doctor": {"bloodType"}},
			"qr_rotation_seconds": 60,
		}))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[IssueResponse](s.T(), rr)
		s.Equal("JBSWY3DPEHPK3PXP", resp.Secret)
		s.Equal(s.umidID, resp.UMID.ID)
		s.NotEmpty(resp.ProvisioningURI)
	})

	s.Run("unknown field in allowed roles is rejected before the service", func() {
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPost, "/umids", map[string]any{
			"allowed_roles": map[string][]string{"doctor": {"shoeSize"}},
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("unknown role is rejected", func() {
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPost, "/umids", map[string]any{
			"allowed_roles": map[string][]string{"janitor": {}},
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("unknown body field is rejected", func() {
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPost, "/umids", map[string]any{
			"secret": "attacker-chosen",
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("conflict surfaces as 409", func() {
		s.service.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "patient already has an active umid"))
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPost, "/umids", map[string]any{}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})

	s.Run("anonymous caller is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/umids", map[string]any{})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *UMIDHandlerSuite) TestUpdateLinkedData() {
	s.Run("passes only the present fields", func() {
		s.service.EXPECT().UpdateLinkedData(gomock.Any(), s.caller(), s.umidID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ models.Caller, _ id.UMIDID, upd models.MedicalDataUpdate) (*models.UMID, error) {
				require.NotNil(s.T(), upd.BloodType)
				assert.Equal(s.T(), "A-", *upd.BloodType)
				assert.Nil(s.T(), upd.FullName)
				return &models.UMID{ID: s.umidID, Version: 2}, nil
			})
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/umids/"+s.umidID.String()+"/linked-data", map[string]any{"bloodType": "A-"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "version", float64(2))
	})

	s.Run("explicit null organ donor is a clear", func() {
		s.service.EXPECT().UpdateLinkedData(gomock.Any(), s.caller(), s.umidID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ models.Caller, _ id.UMIDID, upd models.MedicalDataUpdate) (*models.UMID, error) {
				require.NotNil(s.T(), upd.OrganDonor, "null must be distinguishable from absent")
				assert.Nil(s.T(), *upd.OrganDonor)
				return &models.UMID{ID: s.umidID, Version: 3}, nil
			})
		req := s.asPatient(testutil.NewRawRequest(s.T(), http.MethodPatch,
			"/umids/"+s.umidID.String()+"/linked-data", `{"organDonor": null}`))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("unknown field is rejected", func() {
		req := s.asPatient(testutil.NewRawRequest(s.T(), http.MethodPatch,
			"/umids/"+s.umidID.String()+"/linked-data", `{"organ_donor": null}`))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("malformed umid id", func() {
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/umids/not-a-uuid/linked-data", map[string]any{"bloodType": "A-"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("not found", func() {
		s.service.EXPECT().UpdateLinkedData(gomock.Any(), gomock.Any(), s.umidID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "umid not found"))
		req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/umids/"+s.umidID.String()+"/linked-data", map[string]any{"bloodType": "A-"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func (s *UMIDHandlerSuite) TestUpdateSecurity() {
	s.service.EXPECT().UpdateSecuritySettings(gomock.Any(), s.caller(), s.umidID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ models.Caller, _ id.UMIDID, upd models.SecurityUpdate) (*models.UMID, error) {
			require.NotNil(s.T(), upd.EmergencyOverride)
			assert.True(s.T(), *upd.EmergencyOverride)
			assert.Equal(s.T(), []models.Field{}, upd.AllowedRoles[id.RoleLabTech])
			assert.Nil(s.T(), upd.ToleranceSteps)
			return &models.UMID{ID: s.umidID}, nil
		})
	req := s.asPatient(testutil.NewJSONRequest(s.T(), http.MethodPatch,
		"/umids/"+s.umidID.String()+"/security", map[string]any{
			"emergency_override": true,
			"allowed_roles":      map[string][]string{"lab_tech": {}},
		}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *UMIDHandlerSuite) TestDeactivate() {
	s.service.EXPECT().Deactivate(gomock.Any(), s.caller(), s.umidID).Return(nil)
	req := s.asPatient(testutil.NewRequest(s.T(), http.MethodPost, "/umids/"+s.umidID.String()+"/deactivate"))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
}

func (s *UMIDHandlerSuite) TestAccessLogs() {
	s.Run("passes the limit through", func() {
		s.service.EXPECT().GetAccessLogs(gomock.Any(), s.caller(), s.umidID, 5).
			Return([]accesslog.Entry{{ID: id.NewAccessLogID(), UMIDID: s.umidID}}, nil)
		req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/umids/"+s.umidID.String()+"/access-logs?limit=5"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "count", float64(1))
	})

	s.Run("rejects a non-numeric limit", func() {
		req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/umids/"+s.umidID.String()+"/access-logs?limit=lots"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("store outage maps to 503", func() {
		s.service.EXPECT().GetAccessLogs(gomock.Any(), gomock.Any(), s.umidID, 0).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "access log unavailable"))
		req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/umids/"+s.umidID.String()+"/access-logs"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable))
	})
}

func (s *UMIDHandlerSuite) TestCurrentCode() {
	expires := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	s.service.EXPECT().CurrentCode(gomock.Any(), s.caller(), s.umidID).
		Return(&service.CodeView{Code: "123456", QRPayload: "umid:" + s.umidID.String() + ":123456", ExpiresAt: expires}, nil)
	req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/umids/"+s.umidID.String()+"/code"))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	s.Equal("no-store", rr.Header().Get("Cache-Control"))
	view := testutil.UnmarshalResponse[service.CodeView](s.T(), rr)
	s.Equal("123456", view.Code)
	s.True(expires.Equal(view.ExpiresAt))
}

func (s *UMIDHandlerSuite) TestLinkedDataHistory() {
	s.service.EXPECT().LinkedDataHistory(gomock.Any(), s.caller(), s.umidID).
		Return([]models.LinkedMedicalData{{Version: 1}, {Version: 2}}, nil)
	req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/umids/"+s.umidID.String()+"/linked-data/history"))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "count", float64(2))
}

func (s *UMIDHandlerSuite) TestPatientUMIDs() {
	s.Run("empty list renders as an empty array", func() {
		patientID, err := id.ParsePatientID(s.patientID)
		s.Require().NoError(err)
		s.service.EXPECT().GetPatientUMIDs(gomock.Any(), s.caller(), patientID).Return(nil, nil)
		req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/patients/"+s.patientID+"/umids"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ListResponse[*models.UMID]](s.T(), rr)
		s.NotNil(resp.Items)
		s.Empty(resp.Items)
	})

	s.Run("another patient's listing is forbidden", func() {
		other := uuid.NewString()
		s.service.EXPECT().GetPatientUMIDs(gomock.Any(), s.caller(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "patients may only list their own umids"))
		req := s.asPatient(testutil.NewRequest(s.T(), http.MethodGet, "/patients/"+other+"/umids"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})
}

func (s *UMIDHandlerSuite) TestListAll() {
	s.Run("parses the filter", func() {
		patientID := id.PatientID(uuid.New())
		s.service.EXPECT().GetAllUMIDs(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ models.Caller, f models.Filter) ([]*models.UMID, error) {
				require.NotNil(s.T(), f.IsActive)
				assert.False(s.T(), *f.IsActive)
				require.NotNil(s.T(), f.PatientID)
				assert.Equal(s.T(), patientID, *f.PatientID)
				assert.Equal(s.T(), 10, f.Limit)
				assert.Equal(s.T(), 20, f.Offset)
				return []*models.UMID{}, nil
			})
		req := testutil.WithIdentity(
			testutil.NewRequest(s.T(), http.MethodGet, "/admin/umids?active=false&patient_id="+patientID.String()+"&limit=10&offset=20"),
			uuid.NewString(), id.RoleAdmin)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("rejects a bad active flag", func() {
		req := testutil.WithIdentity(
			testutil.NewRequest(s.T(), http.MethodGet, "/admin/umids?active=maybe"),
			uuid.NewString(), id.RoleAdmin)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

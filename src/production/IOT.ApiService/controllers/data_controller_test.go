package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	jwt "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/implementation/jwt"
	"gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.ApiService/middleware"
	broker "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Broker"
	logger "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Logger"
	iotmodels "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models"
	api_models "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Models/api"
	interfaces "gitlab.com/irisiot/iot.telemetry_server/src/production/IOT.Repository/Interfaces"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

type stubTelemetryRepo struct {
	aggregateResult *iotmodels.AggregatedResult
	aggregateErr    error
	inserted        []iotmodels.TelemetryRecord
	softDeleted     []primitive.ObjectID
	softDeleteErr   error
}

func (r *stubTelemetryRepo) Insert(_ context.Context, record iotmodels.TelemetryRecord) error {
	r.inserted = append(r.inserted, record)
	return nil
}

func (r *stubTelemetryRepo) Aggregate(_ context.Context, _ iotmodels.TelemetryQuery) (*iotmodels.AggregatedResult, error) {
	return r.aggregateResult, r.aggregateErr
}

func (r *stubTelemetryRepo) FindByMac(_ context.Context, _ iotmodels.MacQuery) (*iotmodels.MacResult, error) {
	return &iotmodels.MacResult{}, nil
}

func (r *stubTelemetryRepo) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	if r.softDeleteErr != nil {
		return r.softDeleteErr
	}
	r.softDeleted = append(r.softDeleted, id)
	return nil
}

type stubDeviceRepo struct {
	device *iotmodels.Device
}

func (r *stubDeviceRepo) FindByMac(_ context.Context, macAddress string) (*iotmodels.Device, error) {
	if r.device == nil || !strings.EqualFold(r.device.MacAddress, macAddress) {
		return nil, fmt.Errorf("%w: device %s", iotmodels.ErrNotFound, macAddress)
	}
	return r.device, nil
}

func (r *stubDeviceRepo) FindByID(context.Context, primitive.ObjectID) (*iotmodels.Device, error) {
	return nil, iotmodels.ErrNotFound
}

func (r *stubDeviceRepo) Create(context.Context, *iotmodels.Device) error { return nil }

func (r *stubDeviceRepo) Update(context.Context, primitive.ObjectID, iotmodels.Device) (*iotmodels.Device, error) {
	return nil, iotmodels.ErrNotFound
}

func (r *stubDeviceRepo) Delete(context.Context, primitive.ObjectID, primitive.ObjectID) (*iotmodels.Device, error) {
	return nil, iotmodels.ErrNotFound
}

func (r *stubDeviceRepo) ListByUser(context.Context, interfaces.DeviceListQuery) (*interfaces.DeviceListResult, error) {
	return &interfaces.DeviceListResult{}, nil
}

func (r *stubDeviceRepo) EnsureIndexes(context.Context) error { return nil }

type dataTestEnv struct {
	router    *gin.Engine
	publisher *recordingPublisher
	telemetry *stubTelemetryRepo
	devices   *stubDeviceRepo
	jwt       *jwt.Service
}

func newDataTestEnv(t *testing.T) *dataTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := jwt.NewService(api_models.Config{
		SecretKey:           "test-secret",
		AccessTokenDuration: time.Hour,
		Issuer:              "telemetry-test",
	})
	authMiddleware := middleware.NewAuthMiddleware(jwtService, middleware.DefaultConfig())

	publisher := &recordingPublisher{}
	telemetry := &stubTelemetryRepo{aggregateResult: &iotmodels.AggregatedResult{Data: []iotmodels.AggregatedRow{}}}
	devices := &stubDeviceRepo{}
	dispatcher := broker.NewDispatcher(publisher, logger.Discard())

	router := gin.New()
	controller := NewDataController(telemetry, devices, dispatcher, logger.Discard(), authMiddleware)
	controller.RegisterRoutes(router)

	return &dataTestEnv{
		router:    router,
		publisher: publisher,
		telemetry: telemetry,
		devices:   devices,
		jwt:       jwtService,
	}
}

func (e *dataTestEnv) token(t *testing.T, role string) string {
	t.Helper()
	pair, err := e.jwt.GenerateToken(primitive.NewObjectID().Hex(), role)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return pair.AccessToken
}

func (e *dataTestEnv) post(path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) api_models.Response {
	t.Helper()
	var resp api_models.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response envelope: %v", err)
	}
	return resp
}

func TestDataRoutesRequireAuth(t *testing.T) {
	env := newDataTestEnv(t)
	for _, path := range []string{"/api/data/index", "/api/data/mac", "/api/data/led"} {
		if w := env.post(path, "", `{}`); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestCommandEndpointPublishes(t *testing.T) {
	env := newDataTestEnv(t)
	token := env.token(t, iotmodels.RoleUser)

	w := env.post("/api/data/led", token, `{"macAddress":"AA:BB:CC:DD:EE:FF","status":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeEnvelope(t, w); resp.Code != api_models.CodeOK {
		t.Errorf("unexpected envelope code: %q", resp.Code)
	}

	if len(env.publisher.topics) != 1 || env.publisher.topics[0] != "device/pi/led/AA:BB:CC:DD:EE:FF/start" {
		t.Errorf("unexpected publishes: %v", env.publisher.topics)
	}
}

func TestCommandEndpointRejectsMissingAddress(t *testing.T) {
	env := newDataTestEnv(t)
	token := env.token(t, iotmodels.RoleUser)

	w := env.post("/api/data/dht11", token, `{"status":true}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Code != api_models.CodeError {
		t.Errorf("unexpected envelope code: %q", resp.Code)
	}
	if len(env.publisher.topics) != 0 {
		t.Errorf("invalid request must not publish: %v", env.publisher.topics)
	}
}

func TestIndexReturnsAggregation(t *testing.T) {
	env := newDataTestEnv(t)
	env.telemetry.aggregateResult = &iotmodels.AggregatedResult{Total: 7, Data: []iotmodels.AggregatedRow{}}
	token := env.token(t, iotmodels.RoleUser)

	body := `{"sortField":"createdAt","sortOrder":"ascending","pagenum":1,"pagerow":10,"type":"byInit"}`
	w := env.post("/api/data/index", token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeEnvelope(t, w)
	if resp.Code != api_models.CodeOK {
		t.Errorf("unexpected envelope code: %q", resp.Code)
	}
	payload, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if payload["total"] != float64(7) {
		t.Errorf("unexpected total: %v", payload["total"])
	}
}

func TestIndexMapsValidationErrors(t *testing.T) {
	env := newDataTestEnv(t)
	env.telemetry.aggregateErr = fmt.Errorf("%w: unknown query type", iotmodels.ErrValidation)
	token := env.token(t, iotmodels.RoleUser)

	body := `{"sortField":"createdAt","pagenum":1,"pagerow":10,"type":"byMagic"}`
	if w := env.post("/api/data/index", token, body); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDeleteRecordRequiresAdmin(t *testing.T) {
	env := newDataTestEnv(t)
	id := primitive.NewObjectID()
	body := fmt.Sprintf(`{"id":%q}`, id.Hex())

	if w := env.post("/api/data/delete", env.token(t, iotmodels.RoleUser), body); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", w.Code)
	}

	w := env.post("/api/data/delete", env.token(t, iotmodels.RoleAdmin), body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.telemetry.softDeleted) != 1 || env.telemetry.softDeleted[0] != id {
		t.Errorf("expected one soft delete of %v, got %v", id, env.telemetry.softDeleted)
	}
}

func TestCreateRecordResolvesDevice(t *testing.T) {
	env := newDataTestEnv(t)
	deviceID := primitive.NewObjectID()
	env.devices.device = &iotmodels.Device{ID: deviceID, MacAddress: "AA:BB:CC:DD:EE:FF", Type: "dht11"}

	body := `{"macAddress":"AA:BB:CC:DD:EE:FF","data":{"temperature":21}}`
	w := env.post("/api/data/create", env.token(t, iotmodels.RoleAdmin), body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.telemetry.inserted) != 1 || env.telemetry.inserted[0].CreatedBy != deviceID {
		t.Errorf("record should reference the resolved device: %+v", env.telemetry.inserted)
	}

	// Unknown address maps to 404.
	if w := env.post("/api/data/create", env.token(t, iotmodels.RoleAdmin), `{"macAddress":"00:00","data":{}}`); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown device, got %d", w.Code)
	}
}

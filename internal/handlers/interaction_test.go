package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rzn0/forgetn-t/internal/gateway"
	"github.com/rzn0/forgetn-t/internal/middleware"
	"github.com/rzn0/forgetn-t/internal/models"
	"github.com/rzn0/forgetn-t/internal/publisher"
	"github.com/rzn0/forgetn-t/internal/render"
	"github.com/rzn0/forgetn-t/internal/repository"
	"github.com/rzn0/forgetn-t/internal/services"
	"github.com/rzn0/forgetn-t/internal/utils"
)

type fakeSink struct {
	mu     sync.Mutex
	nextID int
	live   map[string]string
}

func newFakeSink() *fakeSink {
	return &fakeSink{live: map[string]string{}}
}

func (f *fakeSink) PostMessage(_ context.Context, channelID string, _ render.DisplayUnit) (gateway.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.live[id] = channelID
	return gateway.MessageRef{ChannelID: channelID, MessageID: id}, nil
}

func (f *fakeSink) EditMessage(_ context.Context, ref gateway.MessageRef, _ render.DisplayUnit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[ref.MessageID]; !ok {
		return gateway.ErrMessageNotFound
	}
	return nil
}

func (f *fakeSink) DeleteMessage(_ context.Context, ref gateway.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[ref.MessageID]; !ok {
		return gateway.ErrMessageNotFound
	}
	delete(f.live, ref.MessageID)
	return nil
}

type fakeFollowups struct {
	received chan string
}

func (f *fakeFollowups) PostFollowup(_ context.Context, _, _, content string) error {
	f.received <- content
	return nil
}

type InteractionHandlerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	tasks     repository.TaskRepository
	configs   repository.GuildConfigRepository
	sink      *fakeSink
	followups *fakeFollowups
	service   *services.TaskService
	router    *gin.Engine
	pub       ed25519.PublicKey
	priv      ed25519.PrivateKey
}

func (suite *InteractionHandlerTestSuite) SetupTest() {
	var err error
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.AutoMigrate(&models.Task{}, &models.GuildConfig{}))

	suite.tasks = repository.NewTaskRepository(suite.db)
	suite.configs = repository.NewGuildConfigRepository(suite.db)
	suite.sink = newFakeSink()
	suite.followups = &fakeFollowups{received: make(chan string, 1)}
	suite.service = services.NewTaskService(suite.tasks, suite.configs, publisher.New(suite.sink, suite.tasks))

	suite.pub, suite.priv, err = ed25519.GenerateKey(rand.Reader)
	suite.Require().NoError(err)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	handler := NewInteractionHandler(suite.service, suite.followups)
	suite.router.POST("/interactions",
		middleware.VerifyInteraction(hex.EncodeToString(suite.pub)),
		handler.Handle)
}

func (suite *InteractionHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// post signs and delivers an interaction payload the way the platform would.
func (suite *InteractionHandlerTestSuite) post(payload map[string]interface{}) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	suite.Require().NoError(err)

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig := ed25519.Sign(suite.priv, append([]byte(timestamp), body...))

	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", timestamp)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *InteractionHandlerTestSuite) configureGuild() {
	suite.Require().NoError(suite.configs.SetChannel("guild-1", models.ChannelRoleOpen, "chan-open"))
	suite.Require().NoError(suite.configs.SetChannel("guild-1", models.ChannelRoleInProgress, "chan-progress"))
}

func member(userID string, permissions uint64) map[string]interface{} {
	return map[string]interface{}{
		"user":        map[string]interface{}{"id": userID},
		"permissions": strconv.FormatUint(permissions, 10),
	}
}

func commandPayload(name string, options []map[string]interface{}, m map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":           2,
		"guild_id":       "guild-1",
		"channel_id":     "chan-cmd",
		"application_id": "app-1",
		"token":          "tok-1",
		"member":         m,
		"data": map[string]interface{}{
			"name":    name,
			"options": options,
		},
	}
}

func (suite *InteractionHandlerTestSuite) TestPing() {
	w := suite.post(map[string]interface{}{"type": 1})

	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"type": 1}`, w.Body.String())
}

func (suite *InteractionHandlerTestSuite) TestRejectsBadSignature() {
	body := []byte(`{"type": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(make([]byte, ed25519.SignatureSize)))
	req.Header.Set("X-Signature-Timestamp", "12345")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *InteractionHandlerTestSuite) TestAddTask() {
	suite.configureGuild()

	w := suite.post(commandPayload("addtask", []map[string]interface{}{
		{"name": "description", "value": "Fix login bug"},
	}, member("100", 0)))

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "added to")

	open, err := suite.tasks.ListByStatus("guild-1", models.TaskStatusOpen)
	suite.Require().NoError(err)
	suite.Require().Len(open, 1)
	suite.Equal("Fix login bug", open[0].Description)
	suite.Equal("100", open[0].CreatorID)
}

func (suite *InteractionHandlerTestSuite) TestAddTask_NotConfigured() {
	w := suite.post(commandPayload("addtask", []map[string]interface{}{
		{"name": "description", "value": "Fix login bug"},
	}, member("100", 0)))

	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "must be set up first")

	open, err := suite.tasks.ListByStatus("guild-1", models.TaskStatusOpen)
	suite.Require().NoError(err)
	suite.Empty(open)
}

func (suite *InteractionHandlerTestSuite) TestSetup_RequiresPermission() {
	w := suite.post(commandPayload("setup", []map[string]interface{}{
		{"name": "open_channel", "options": []map[string]interface{}{
			{"name": "channel", "value": "chan-open"},
		}},
	}, member("100", 0)))

	suite.Contains(w.Body.String(), "Manage Channels")

	cfg, err := suite.configs.Get("guild-1")
	suite.Require().NoError(err)
	suite.Nil(cfg)
}

func (suite *InteractionHandlerTestSuite) TestSetup_SetsChannel() {
	w := suite.post(commandPayload("setup", []map[string]interface{}{
		{"name": "open_channel", "options": []map[string]interface{}{
			{"name": "channel", "value": "chan-open"},
		}},
	}, member("100", utils.PermissionManageChannels)))

	suite.Contains(w.Body.String(), "Open tasks channel set")

	cfg, err := suite.configs.Get("guild-1")
	suite.Require().NoError(err)
	suite.Require().NotNil(cfg)
	suite.Equal("chan-open", cfg.OpenChannelID)
}

func (suite *InteractionHandlerTestSuite) clickPayload(customID string, m map[string]interface{}, ref gateway.MessageRef) map[string]interface{} {
	return map[string]interface{}{
		"type":           3,
		"guild_id":       "guild-1",
		"channel_id":     ref.ChannelID,
		"application_id": "app-1",
		"token":          "tok-1",
		"member":         m,
		"message":        map[string]interface{}{"id": ref.MessageID},
		"data":           map[string]interface{}{"custom_id": customID},
	}
}

func (suite *InteractionHandlerTestSuite) TestClaimButton() {
	suite.configureGuild()
	task, err := suite.service.CreateTask(context.Background(), "guild-1", "100", "Fix login bug")
	suite.Require().NoError(err)
	ref := gateway.MessageRef{ChannelID: task.ChannelID, MessageID: task.MessageID}

	w := suite.post(suite.clickPayload(render.ClaimCustomID(task.ID), member("200", 0), ref))

	suite.Contains(w.Body.String(), "You claimed task")

	stored, err := suite.tasks.FindByID(task.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, stored.Status)
	suite.Equal("200", stored.AssigneeID)
}

func (suite *InteractionHandlerTestSuite) TestCompleteButton_NonAssignee() {
	suite.configureGuild()
	task, err := suite.service.CreateTask(context.Background(), "guild-1", "100", "Fix login bug")
	suite.Require().NoError(err)
	claimed, err := suite.service.ClaimTask(context.Background(), task.ID, "200",
		gateway.MessageRef{ChannelID: task.ChannelID, MessageID: task.MessageID})
	suite.Require().NoError(err)
	ref := gateway.MessageRef{ChannelID: claimed.ChannelID, MessageID: claimed.MessageID}

	w := suite.post(suite.clickPayload(render.CompleteCustomID(task.ID), member("300", 0), ref))

	suite.Contains(w.Body.String(), "Only the assignee")

	stored, err := suite.tasks.FindByID(task.ID)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, stored.Status)
}

func (suite *InteractionHandlerTestSuite) TestCompleteButton_Assignee() {
	suite.configureGuild()
	task, err := suite.service.CreateTask(context.Background(), "guild-1", "100", "Fix login bug")
	suite.Require().NoError(err)
	claimed, err := suite.service.ClaimTask(context.Background(), task.ID, "200",
		gateway.MessageRef{ChannelID: task.ChannelID, MessageID: task.MessageID})
	suite.Require().NoError(err)
	ref := gateway.MessageRef{ChannelID: claimed.ChannelID, MessageID: claimed.MessageID}

	w := suite.post(suite.clickPayload(render.CompleteCustomID(task.ID), member("200", 0), ref))

	suite.Contains(w.Body.String(), "completed by")

	_, err = suite.tasks.FindByID(task.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (suite *InteractionHandlerTestSuite) TestUnknownButton() {
	w := suite.post(suite.clickPayload("mystery_button", member("200", 0), gateway.MessageRef{}))
	suite.Contains(w.Body.String(), "no longer recognized")
}

func (suite *InteractionHandlerTestSuite) TestResync_DeferredWithFollowup() {
	suite.configureGuild()
	_, err := suite.service.CreateTask(context.Background(), "guild-1", "100", "Fix login bug")
	suite.Require().NoError(err)

	w := suite.post(commandPayload("resync_tasks", nil, member("100", utils.PermissionManageGuild)))

	suite.Contains(w.Body.String(), `"type":5`)

	select {
	case content := <-suite.followups.received:
		suite.Contains(content, "Resync Complete")
		suite.Contains(content, "Open Tasks Resynced: 1")
	case <-time.After(5 * time.Second):
		suite.Fail("no resync followup arrived")
	}
}

func (suite *InteractionHandlerTestSuite) TestResync_RequiresPermission() {
	suite.configureGuild()

	w := suite.post(commandPayload("resync_tasks", nil, member("100", 0)))

	suite.Contains(w.Body.String(), "Manage Server")
}

func TestInteractionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(InteractionHandlerTestSuite))
}

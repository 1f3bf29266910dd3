package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	boterrors "github.com/rzn0/forgetn-t/internal/errors"
	"github.com/rzn0/forgetn-t/internal/gateway"
	"github.com/rzn0/forgetn-t/internal/middleware"
	"github.com/rzn0/forgetn-t/internal/models"
	"github.com/rzn0/forgetn-t/internal/render"
	"github.com/rzn0/forgetn-t/internal/services"
	"github.com/rzn0/forgetn-t/internal/utils"
)

// Interaction types
const (
	interactionPing      = 1
	interactionCommand   = 2
	interactionComponent = 3
)

// Interaction response types
const (
	responsePong     = 1
	responseMessage  = 4
	responseDeferred = 5
)

const ephemeralFlag = 64

// how long a deferred resync may keep running after the interaction is acked
const resyncTimeout = 5 * time.Minute

// InteractionHandler translates raw interaction payloads into lifecycle
// operations and answers each with a short ephemeral outcome notice.
type InteractionHandler struct {
	service   *services.TaskService
	followups gateway.FollowupSender
}

// NewInteractionHandler creates a new InteractionHandler
func NewInteractionHandler(service *services.TaskService, followups gateway.FollowupSender) *InteractionHandler {
	return &InteractionHandler{
		service:   service,
		followups: followups,
	}
}

// Handle is the interactions webhook endpoint. The body has already been
// signature-verified by the middleware.
func (h *InteractionHandler) Handle(c *gin.Context) {
	body, ok := middleware.GetRawBody(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	}

	payload := gjson.ParseBytes(body)
	switch payload.Get("type").Int() {
	case interactionPing:
		c.JSON(http.StatusOK, gin.H{"type": responsePong})
	case interactionCommand:
		h.handleCommand(c, payload)
	case interactionComponent:
		h.handleComponent(c, payload)
	default:
		notice(c, "Unsupported interaction.")
	}
}

func (h *InteractionHandler) handleCommand(c *gin.Context, payload gjson.Result) {
	event := gateway.CommandInvoked{
		Name:        payload.Get("data.name").String(),
		GuildID:     payload.Get("guild_id").String(),
		ChannelID:   payload.Get("channel_id").String(),
		ActorID:     payload.Get("member.user.id").String(),
		Permissions: utils.ParsePermissions(payload.Get("member.permissions").String()),
		Args:        map[string]string{},
	}

	if event.GuildID == "" || event.ActorID == "" {
		notice(c, "This command only works inside a server.")
		return
	}

	switch event.Name {
	case "addtask":
		event.Args["description"] = payload.Get(`data.options.#(name=="description").value`).String()
		h.addTask(c, event)
	case "setup":
		sub := payload.Get("data.options.0")
		event.Subcommand = sub.Get("name").String()
		event.Args["channel"] = sub.Get("options.0.value").String()
		h.setup(c, event)
	case "resync_tasks":
		h.resync(c, payload, event)
	default:
		notice(c, "Unknown command.")
	}
}

func (h *InteractionHandler) addTask(c *gin.Context, event gateway.CommandInvoked) {
	description := event.Args["description"]
	if description == "" {
		notice(c, "A task description is required.")
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), event.GuildID, event.ActorID, description)
	if err != nil {
		h.fail(c, "addtask", err)
		return
	}

	notice(c, fmt.Sprintf("✅ Task **#%d** added to %s!", task.ID, utils.ChannelMention(task.ChannelID)))
}

func (h *InteractionHandler) setup(c *gin.Context, event gateway.CommandInvoked) {
	if !utils.HasPermission(event.Permissions, utils.PermissionManageChannels) {
		notice(c, "❌ You need the Manage Channels permission to run this command.")
		return
	}

	var role models.ChannelRole
	switch event.Subcommand {
	case "open_channel":
		role = models.ChannelRoleOpen
	case "inprogress_channel":
		role = models.ChannelRoleInProgress
	case "completed_channel":
		role = models.ChannelRoleCompleted
	default:
		notice(c, "Unknown setup option.")
		return
	}

	channelID := event.Args["channel"]
	if channelID == "" {
		notice(c, "A channel is required.")
		return
	}

	if err := h.service.SetChannel(event.GuildID, role, channelID); err != nil {
		h.fail(c, "setup", err)
		return
	}

	switch role {
	case models.ChannelRoleCompleted:
		notice(c, fmt.Sprintf("✅ Completed tasks will now be logged in %s.", utils.ChannelMention(channelID)))
	case models.ChannelRoleInProgress:
		notice(c, fmt.Sprintf("✅ In-progress tasks channel set to %s.", utils.ChannelMention(channelID)))
	default:
		notice(c, fmt.Sprintf("✅ Open tasks channel set to %s.", utils.ChannelMention(channelID)))
	}
}

// resync acks the interaction immediately and reconciles in the background;
// the counted summary arrives as a followup message.
func (h *InteractionHandler) resync(c *gin.Context, payload gjson.Result, event gateway.CommandInvoked) {
	if !utils.HasPermission(event.Permissions, utils.PermissionManageGuild) {
		notice(c, "❌ You need the Manage Server permission to run this command.")
		return
	}

	applicationID := payload.Get("application_id").String()
	token := payload.Get("token").String()

	c.JSON(http.StatusOK, gin.H{
		"type": responseDeferred,
		"data": gin.H{"flags": ephemeralFlag},
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
		defer cancel()

		content := ""
		report, err := h.service.Resync(ctx, event.GuildID)
		if err != nil {
			log.Printf("resync failed for guild %s: %v", event.GuildID, err)
			content = "❌ " + boterrors.UserMessage(err)
		} else {
			content = report.Summary()
		}

		if err := h.followups.PostFollowup(ctx, applicationID, token, content); err != nil {
			log.Printf("could not deliver resync followup for guild %s: %v", event.GuildID, err)
		}
	}()
}

func (h *InteractionHandler) handleComponent(c *gin.Context, payload gjson.Result) {
	event := gateway.ControlClicked{
		CustomID:    payload.Get("data.custom_id").String(),
		GuildID:     payload.Get("guild_id").String(),
		ActorID:     payload.Get("member.user.id").String(),
		Permissions: utils.ParsePermissions(payload.Get("member.permissions").String()),
		Ref: gateway.MessageRef{
			ChannelID: payload.Get("channel_id").String(),
			MessageID: payload.Get("message.id").String(),
		},
	}

	action, taskID, ok := render.ParseControlID(event.CustomID)
	if !ok {
		notice(c, "This button is no longer recognized.")
		return
	}

	switch action {
	case render.ActionClaim:
		task, err := h.service.ClaimTask(c.Request.Context(), taskID, event.ActorID, event.Ref)
		if err != nil {
			h.fail(c, "claim", err)
			return
		}
		notice(c, fmt.Sprintf("✅ You claimed task **#%d**. Moved to 'In Progress'.", task.ID))
	case render.ActionComplete:
		privileged := utils.HasPermission(event.Permissions, utils.PermissionManageGuild)
		logged, err := h.service.CompleteTask(c.Request.Context(), taskID, event.ActorID, privileged, event.Ref)
		if err != nil {
			h.fail(c, "complete", err)
			return
		}
		text := fmt.Sprintf("🎉 Task **#%d** completed by %s!", taskID, utils.Mention(event.ActorID))
		if logged {
			text += " Logged in the completed-tasks channel."
		}
		notice(c, text)
	}
}

// fail answers an interaction with the user-facing side of an error and logs
// the diagnostic detail.
func (h *InteractionHandler) fail(c *gin.Context, op string, err error) {
	if boterrors.CodeOf(err) == boterrors.ErrCodeInternal {
		log.Printf("%s failed: %v", op, err)
	} else {
		log.Printf("%s rejected: %v", op, err)
	}
	notice(c, "❌ "+boterrors.UserMessage(err))
}

// notice sends a short ephemeral message to the invoking user.
func notice(c *gin.Context, content string) {
	c.JSON(http.StatusOK, gin.H{
		"type": responseMessage,
		"data": gin.H{
			"content": content,
			"flags":   ephemeralFlag,
		},
	})
}

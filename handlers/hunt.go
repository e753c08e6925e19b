// Package handlers wires the treasure hunt's HTTP surface: player
// registration, clue scanning, the leaderboard, the PWA assets, and the
// passthrough fetch relay.
package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dverhoef/treasurehunt/pkg/hunt"
	"github.com/dverhoef/treasurehunt/pkg/names"
	"github.com/dverhoef/treasurehunt/pkg/passthrough"
	"github.com/dverhoef/treasurehunt/pkg/store"
)

const mainLayout = "layouts/main"

// Hunt holds everything the handlers need.
type Hunt struct {
	store    *store.Store
	clues    *hunt.Clues
	names    *names.Screen
	fetch    *passthrough.Forwarder
	log      *zap.Logger
	sessions *session.Store
}

// NewHunt assembles the handler set.
func NewHunt(st *store.Store, clues *hunt.Clues, screen *names.Screen, log *zap.Logger, sessionTTL time.Duration) *Hunt {
	return &Hunt{
		store:    st,
		clues:    clues,
		names:    screen,
		fetch:    passthrough.New(),
		log:      log,
		sessions: newSessionStore(sessionTTL),
	}
}

// Register mounts all routes on the app.
func (h *Hunt) Register(app *fiber.App) {
	app.Get("/", h.Index)
	app.Post("/", h.CreatePlayer)
	app.Get("/start", h.StartGame)
	app.Get("/hunt/clue/:tag", h.CheckClue)
	app.Get("/leaderboard", h.Leaderboard)
	app.Get("/sw.js", h.ServiceWorker)
	app.Get("/manifest.webmanifest", h.Manifest)
	app.All("/fetch/*", h.FetchThrough)
}

// Index is the landing page for player registration. A returning player
// who already finished goes straight to the results.
func (h *Hunt) Index(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	if id, _ := sess.Get(sessionKeyPlayerID).(string); id != "" {
		player, err := h.store.GetPlayer(c.Context(), id)
		if err == nil && player.Finished() {
			setFlash(sess, "info", "Welcome back, Master Explorer! You have already completed the hunt. Here are the results.")
			if err := sess.Save(); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			return c.Redirect("/leaderboard")
		}
	}

	flash, kind := popFlash(sess)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return c.Render("index", fiber.Map{"Flash": flash, "FlashKind": kind}, mainLayout)
}

// CreatePlayer validates the chosen name and registers the player.
func (h *Hunt) CreatePlayer(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	rejected := func(message string) error {
		setFlash(sess, "error", message)
		if err := sess.Save(); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return c.Redirect("/")
	}

	name := names.Clean(c.FormValue("player_name"))
	if name == "" {
		return rejected("Player name cannot be empty!")
	}
	if !h.names.Allowed(name) {
		return rejected("That name contains inappropriate language. Please choose a different name.")
	}

	nameTakenMessage := fmt.Sprintf("A player named '%s' is already on a voyage! Please choose a different name.", name)
	taken, err := h.store.NameExists(c.Context(), name)
	if err != nil {
		return fmt.Errorf("check player name: %w", err)
	}
	if taken {
		return rejected(nameTakenMessage)
	}

	id := uuid.NewString()
	if err := h.store.CreatePlayer(c.Context(), id, name); err != nil {
		// Two players can race past the NameExists check; the unique
		// constraint settles it.
		if errors.Is(err, store.ErrNameTaken) {
			return rejected(nameTakenMessage)
		}
		return fmt.Errorf("create player: %w", err)
	}

	sess.Set(sessionKeyPlayerID, id)
	sess.Set(sessionKeyPlayerName, name)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	h.log.Info("player registered", zap.String("player", name))
	return c.Redirect("/start")
}

// StartGame shows the very first clue before the timer starts.
func (h *Hunt) StartGame(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	playerName, _ := sess.Get(sessionKeyPlayerName).(string)
	if playerName == "" {
		setFlash(sess, "error", "Please register to start the hunt.")
		if err := sess.Save(); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return c.Redirect("/")
	}

	first, _ := h.clues.Get(h.clues.InitialTag())
	flash, kind := popFlash(sess)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return c.Render("start", fiber.Map{
		"PlayerName": playerName,
		"FirstClue":  first.Clue,
		"Flash":      flash,
		"FlashKind":  kind,
	}, mainLayout)
}

// CheckClue handles a tag scan: it starts the game on the first correct
// scan, advances progress on the expected tag, and records the finish on
// the final one.
func (h *Hunt) CheckClue(c *fiber.Ctx) error {
	tag := c.Params("tag")
	ctx := c.Context()

	sess, err := h.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	playerID, _ := sess.Get(sessionKeyPlayerID).(string)
	playerName, _ := sess.Get(sessionKeyPlayerName).(string)
	if playerID == "" {
		setFlash(sess, "error", "Please register with a player name to start the hunt!")
		if err := sess.Save(); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return c.Redirect("/")
	}

	player, err := h.store.GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		// Corrupted session state; make the player register again.
		sess.Delete(sessionKeyPlayerID)
		sess.Delete(sessionKeyPlayerName)
		setFlash(sess, "error", "Player session error. Please register again.")
		if err := sess.Save(); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return c.Redirect("/")
	}
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}

	initial := h.clues.InitialTag()

	// The first scan starts the game, and only the initial tag counts.
	if !player.Started() {
		if tag != initial {
			return h.renderError(c, sess, playerName,
				fmt.Sprintf("To start the game, you must scan the first tag (%s).", initial))
		}
		if err := h.store.StartHunt(ctx, playerID, tag); err != nil {
			return fmt.Errorf("start hunt: %w", err)
		}
		player, err = h.store.GetPlayer(ctx, playerID)
		if err != nil {
			return fmt.Errorf("reload player: %w", err)
		}
		h.log.Info("hunt started", zap.String("player", playerName))
	}

	clue, known := h.clues.Get(tag)
	if !known {
		return h.renderError(c, sess, playerName, "This tag is not active in the current hunt.")
	}

	if player.Finished() {
		setFlash(sess, "info", "You have already completed the hunt! Here are the results.")
		if err := sess.Save(); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return c.Redirect("/leaderboard")
	}

	expected := player.CurrentTag
	if expected == "" {
		expected = initial
	}

	if tag != expected {
		// Out of order; repeat the clue the player should be chasing.
		message := "Incorrect tag scanned. Please check your current clue."
		if current, ok := h.clues.Get(expected); ok {
			message = fmt.Sprintf("Incorrect tag scanned. You are currently looking for the tag associated with the clue:\n\n\"%s\"", current.Clue)
		}
		return h.renderError(c, sess, playerName, message)
	}

	data := fiber.Map{
		"PlayerName": playerName,
		"Clue":       clue.Clue,
		"Final":      clue.Final,
	}

	if clue.Final {
		if err := h.store.Finish(ctx, playerID); err != nil {
			return fmt.Errorf("finish hunt: %w", err)
		}
		player, err = h.store.GetPlayer(ctx, playerID)
		if err != nil {
			return fmt.Errorf("reload player: %w", err)
		}
		rank, err := h.store.Rank(ctx, player.Duration())
		if err != nil {
			return fmt.Errorf("compute rank: %w", err)
		}
		data["CompletionTime"] = hunt.FormatDuration(player.Duration())
		data["Rank"] = rank
		h.log.Info("hunt finished",
			zap.String("player", playerName),
			zap.Duration("duration", player.Duration()),
			zap.Int("rank", rank))
	} else {
		if err := h.store.Advance(ctx, playerID, clue.NextTag); err != nil {
			return fmt.Errorf("advance hunt: %w", err)
		}
	}

	flash, kind := popFlash(sess)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	data["Flash"] = flash
	data["FlashKind"] = kind
	return c.Render("clue", data, mainLayout)
}

// Leaderboard shows the top finishers by completion time.
func (h *Hunt) Leaderboard(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	flash, kind := popFlash(sess)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	entries, err := h.store.Leaderboard(c.Context(), 10)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}

	type row struct {
		Place int
		Name  string
		Time  string
	}
	rows := make([]row, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, row{
			Place: i + 1,
			Name:  entry.Name,
			Time:  hunt.FormatShort(entry.Duration),
		})
	}

	return c.Render("leaderboard", fiber.Map{
		"Entries":   rows,
		"Flash":     flash,
		"FlashKind": kind,
	}, mainLayout)
}

func (h *Hunt) renderError(c *fiber.Ctx, sess *session.Session, playerName, message string) error {
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return c.Render("error", fiber.Map{
		"PlayerName": playerName,
		"Message":    message,
	}, mainLayout)
}

package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dverhoef/treasurehunt/pkg/hunt"
	"github.com/dverhoef/treasurehunt/pkg/names"
	"github.com/dverhoef/treasurehunt/pkg/store"
	"github.com/dverhoef/treasurehunt/views"
)

const testClues = `
- tag: tag-oak
  clue: "Look under the old oak tree."
  next_tag: tag-bridge
- tag: tag-bridge
  clue: "Cross the bridge and count the planks."
  next_tag: tag-chest
- tag: tag-chest
  clue: "The chest awaits behind the mill."
  final: true
`

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "hunt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	clues, err := hunt.Parse([]byte(testClues))
	require.NoError(t, err)

	app := fiber.New(fiber.Config{Views: views.Engine()})
	NewHunt(st, clues, names.NewScreen(), zap.NewNop(), time.Hour).Register(app)
	return app
}

// client replays the session cookie between requests, like a browser.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies []*http.Cookie
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app}
}

func (c *client) do(req *http.Request) *http.Response {
	c.t.Helper()
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	if fresh := resp.Cookies(); len(fresh) > 0 {
		c.cookies = fresh
	}
	return resp
}

func (c *client) get(path string) *http.Response {
	c.t.Helper()
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *http.Response {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return c.do(req)
}

func (c *client) register(name string) {
	c.t.Helper()
	resp := c.postForm("/", url.Values{"player_name": {name}})
	require.Equal(c.t, http.StatusFound, resp.StatusCode)
	require.Equal(c.t, "/start", resp.Header.Get("Location"))
}

func parseHTML(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func TestIndexShowsRegistrationForm(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	resp := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := parseHTML(t, resp)
	assert.Equal(t, 1, doc.Find(`form input[name="player_name"]`).Length())
	assert.Equal(t, 0, doc.Find(".flash").Length())
}

func TestRegisterRejectsBadNames(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	cases := []struct {
		name      string
		form      url.Values
		wantFlash string
	}{
		{"empty", url.Values{"player_name": {"   "}}, "Player name cannot be empty!"},
		{"missing field", url.Values{}, "Player name cannot be empty!"},
		{"profane", url.Values{"player_name": {"klootzak"}}, "inappropriate language"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, app)
			resp := c.postForm("/", tc.form)
			require.Equal(t, http.StatusFound, resp.StatusCode)
			require.Equal(t, "/", resp.Header.Get("Location"))

			doc := parseHTML(t, c.get("/"))
			assert.Contains(t, doc.Find(".flash-error").Text(), tc.wantFlash)
		})
	}
}

func TestRegisterRejectsTakenName(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	newClient(t, app).register("Anna")

	c := newClient(t, app)
	resp := c.postForm("/", url.Values{"player_name": {"Anna"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	doc := parseHTML(t, c.get("/"))
	assert.Contains(t, doc.Find(".flash-error").Text(), "already on a voyage")
}

func TestStartRequiresRegistration(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	resp := c.get("/start")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestStartShowsFirstClue(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	c.register("Anna")

	resp := c.get("/start")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := parseHTML(t, resp)
	assert.Contains(t, doc.Find("h1").Text(), "Anna")
	assert.Contains(t, doc.Find(".clue").Text(), "old oak tree")
}

func TestScanRequiresRegistration(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	resp := c.get("/hunt/clue/tag-oak")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestScanMustStartAtInitialTag(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	c.register("Anna")

	resp := c.get("/hunt/clue/tag-bridge")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := parseHTML(t, resp)
	assert.Contains(t, doc.Text(), "you must scan the first tag (tag-oak)")
}

func TestFullHunt(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	c := newClient(t, app)
	c.register("Anna")

	// First scan starts the timer and shows the scanned tag's clue.
	doc := parseHTML(t, c.get("/hunt/clue/tag-oak"))
	assert.Contains(t, doc.Find(".clue").Text(), "old oak tree")

	// Re-scanning an earlier tag is out of order and repeats the
	// currently expected clue.
	doc = parseHTML(t, c.get("/hunt/clue/tag-oak"))
	assert.Contains(t, doc.Text(), "Incorrect tag scanned")
	assert.Contains(t, doc.Text(), "count the planks")

	// An unknown tag renders the error page.
	doc = parseHTML(t, c.get("/hunt/clue/tag-bogus"))
	assert.Contains(t, doc.Text(), "not active in the current hunt")

	doc = parseHTML(t, c.get("/hunt/clue/tag-bridge"))
	assert.Contains(t, doc.Find(".clue").Text(), "count the planks")

	// The final tag records the finish, completion time and rank.
	doc = parseHTML(t, c.get("/hunt/clue/tag-chest"))
	text := doc.Text()
	assert.Contains(t, text, "You found the treasure, Anna!")
	assert.Contains(t, text, "minutes and")
	assert.Contains(t, text, "#1")

	// Scanning after finishing redirects to the results.
	resp := c.get("/hunt/clue/tag-oak")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/leaderboard", resp.Header.Get("Location"))

	// So does revisiting the landing page.
	resp = c.get("/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/leaderboard", resp.Header.Get("Location"))

	doc = parseHTML(t, c.get("/leaderboard"))
	row := doc.Find("tbody tr").First()
	assert.Contains(t, row.Text(), "Anna")
	assert.Contains(t, doc.Find(".flash-info").Text(), "Welcome back, Master Explorer!")
}

func TestLeaderboardEmpty(t *testing.T) {
	t.Parallel()

	c := newClient(t, newTestApp(t))
	doc := parseHTML(t, c.get("/leaderboard"))
	assert.Equal(t, 0, doc.Find("tbody tr").Length())
	assert.Contains(t, doc.Text(), "No explorer has finished")
}

func TestLeaderboardOrdersByDuration(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	for _, name := range []string{"Anna", "Bram"} {
		c := newClient(t, app)
		c.register(name)
		readAndClose(t, c.get("/hunt/clue/tag-oak"))
		readAndClose(t, c.get("/hunt/clue/tag-bridge"))
		readAndClose(t, c.get("/hunt/clue/tag-chest"))
	}

	c := newClient(t, app)
	doc := parseHTML(t, c.get("/leaderboard"))
	rows := doc.Find("tbody tr")
	require.Equal(t, 2, rows.Length())
}

func readAndClose(t *testing.T, resp *http.Response) {
	t.Helper()
	_, err := io.Copy(io.Discard, resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
}

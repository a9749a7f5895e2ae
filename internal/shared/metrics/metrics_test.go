package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCollectionOp(t *testing.T) {
	before := testutil.ToFloat64(collectionOps.WithLabelValues("workouts", "create", "success"))
	RecordCollectionOp("workouts", "create", true, time.Now())
	after := testutil.ToFloat64(collectionOps.WithLabelValues("workouts", "create", "success"))
	assert.Equal(t, before+1, after)
}

func TestSubscriptionGauge(t *testing.T) {
	SubscriptionOpened("exercises")
	SubscriptionOpened("exercises")
	SubscriptionClosed("exercises")
	assert.Equal(t, float64(1), testutil.ToFloat64(activeSubscriptions.WithLabelValues("exercises")))
}

func TestRecordAuthOp(t *testing.T) {
	RecordAuthOp("sign_in", "")
	assert.GreaterOrEqual(t, testutil.ToFloat64(authOps.WithLabelValues("sign_in", "ok")), float64(1))
}

func TestRecordNavigation(t *testing.T) {
	before := testutil.ToFloat64(navigationDecisions.WithLabelValues("/login", "redirect"))
	RecordNavigation("/login", "redirect")
	assert.Equal(t, before+1, testutil.ToFloat64(navigationDecisions.WithLabelValues("/login", "redirect")))
}

func TestFiberMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(FiberMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/ping", "200")), float64(1))
}

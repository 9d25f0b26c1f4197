package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/core/student"
	"github.com/trezcool/unireg/testutil"
)

func Test_studentApi_profile(t *testing.T) {
	app := setup(t)
	asha := testutil.CreateStudent(t, app.stdRepo, "Asha", "EN-1", "asha@uni.test", "")

	stored, err := app.stdRepo.GetStudent(context.Background(), student.GetFilter{ID: asha.ID})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingIdentity)},
		{name: "Profile", path: "/v1/me", token: getToken(t, app, asha), wantData: marchallObj(t, stored)},
	}
	runHTTPTests(t, app, tests)
}

func Test_studentApi_schedule(t *testing.T) {
	app := setup(t)
	asha := testutil.CreateStudent(t, app.stdRepo, "Asha", "EN-1", "asha@uni.test", "")
	token := getToken(t, app, asha)

	catalog := course.DefaultCatalog()
	empty := marchallObj(t, course.NewSchedule(nil))

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/me/schedule", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingIdentity)},
		{name: "Empty schedule", path: "/v1/me/schedule", token: token, wantData: empty},
	})

	// AM2301 (4) + CSE2304 (3) + CSE2302 (2)
	var held []course.Course
	for _, idx := range []int{0, 1, 4} {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+strconv.Itoa(catalog[idx].ID)+"/register", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		c := catalog[idx]
		c.Enrolled = 1
		held = append(held, c)
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Schedule with credits", path: "/v1/me/schedule", token: token, wantData: []byte(`{"courses":` + string(marchallObj(t, held)) + `,"total_credits":9}`)},
		{name: "Reset auth required", method: http.MethodPost, path: "/v1/me/schedule/reset", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingIdentity)},
		{name: "Reset", method: http.MethodPost, path: "/v1/me/schedule/reset", token: token, wantData: empty},
		{name: "Seats released", path: "/v1/courses", wantData: marchallObj(t, catalog)},
		{name: "Reset twice", method: http.MethodPost, path: "/v1/me/schedule/reset", token: token, wantData: empty},
	})
}

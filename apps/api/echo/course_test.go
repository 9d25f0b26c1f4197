package echoapi

import (
	"net/http"
	"testing"

	"github.com/trezcool/unireg/core/course"
	"github.com/trezcool/unireg/testutil"
)

func Test_courseApi_query(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "Catalog", path: "/v1/courses", wantData: marchallObj(t, course.DefaultCatalog())},
		{name: "Trailing slash", path: "/v1/courses/", wantData: marchallObj(t, course.DefaultCatalog())},
	}
	runHTTPTests(t, app, tests)
}

func Test_courseApi_retrieve(t *testing.T) {
	app := setup(t)
	catalog := course.DefaultCatalog()

	tests := []httpTest{
		{name: "Found", path: "/v1/courses/104", wantData: marchallObj(t, catalog[3])},
		{name: "Unknown id", path: "/v1/courses/999", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{name: "Invalid id", path: "/v1/courses/lol", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
	}
	runHTTPTests(t, app, tests)
}

func Test_courseApi_register(t *testing.T) {
	app := setup(t)
	testutil.SeedCatalog(t, app.crsRepo, course.Course{ID: 900, Code: "ONE900", Title: "One seat", Instructor: "Dr Z", Credits: 1, Capacity: 1})

	asha := testutil.CreateStudent(t, app.stdRepo, "Asha", "EN-1", "asha@uni.test", "")
	ravi := testutil.CreateStudent(t, app.stdRepo, "Ravi", "EN-2", "ravi@uni.test", "")
	ashaToken := getToken(t, app, asha)

	am2301 := course.DefaultCatalog()[0]
	am2301.Enrolled = 1
	oneSeat := course.Course{ID: 900, Code: "ONE900", Title: "One seat", Instructor: "Dr Z", Credits: 1, Capacity: 1, Enrolled: 1}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/courses/101/register", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingIdentity)},
		{name: "Registered", path: "/v1/courses/101/register", token: ashaToken, wantData: marchallObj(t, am2301)},
		{
			name: "Already registered", path: "/v1/courses/101/register", token: ashaToken, wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "already registered for this course"}),
		},
		{name: "Unknown course", path: "/v1/courses/999/register", token: ashaToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{name: "Last seat taken", path: "/v1/courses/900/register", token: getToken(t, app, ravi), wantData: marchallObj(t, oneSeat)},
		{name: "Course full", path: "/v1/courses/900/register", token: ashaToken, wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "course is full"})},
		{name: "Count updated", path: "/v1/courses/101", wantData: marchallObj(t, am2301)},
	}
	for i := range tests {
		if tests[i].name != "Count updated" {
			tests[i].method = http.MethodPost
		}
	}
	runHTTPTests(t, app, tests)
}

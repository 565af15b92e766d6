package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"writing-assessment-api/config"
	"writing-assessment-api/controllers"
	"writing-assessment-api/models"
	"writing-assessment-api/routes"
	"writing-assessment-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type apiTest struct {
	t            *testing.T
	router       *gin.Engine
	db           *gorm.DB
	student      models.Student
	project      models.Project
	studentToken string
	teacherToken string
}

// newAPITest boots the full router against an in-memory database and logs in
// one student and one teacher through the real endpoints.
func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Student{}, &models.Teacher{}, &models.Project{}, &models.Submission{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	config.DB = db
	controllers.Init(services.NewHub(), services.NewSubmissionService(db, nil))

	router := gin.New()
	routes.SetupRoutes(router)

	at := &apiTest{t: t, router: router, db: db}

	studentHash, err := controllers.HashPassword("fish")
	if err != nil {
		t.Fatal(err)
	}
	at.student = models.Student{Name: "Ada Wong", YearLevel: 5, IDCode: "S001", ClassGroup: "5A", PasswordHash: studentHash}
	if err := db.Create(&at.student).Error; err != nil {
		t.Fatal(err)
	}

	teacherHash, err := controllers.HashPassword("chalk")
	if err != nil {
		t.Fatal(err)
	}
	teacher := models.Teacher{Username: "admin", FullName: "Ms Admin", PasswordHash: teacherHash}
	if err := db.Create(&teacher).Error; err != nil {
		t.Fatal(err)
	}

	at.project = models.Project{
		Title:               "Term 3 Narrative",
		Genre:               models.GenreNarrative,
		AssignedClassGroups: datatypes.JSON(`["5A"]`),
		IsActive:            true,
	}
	if err := db.Create(&at.project).Error; err != nil {
		t.Fatal(err)
	}

	at.studentToken = at.login("/api/student/auth/login", gin.H{"student_id": at.student.StudentID, "password": "fish"})
	at.teacherToken = at.login("/api/auth/login", gin.H{"username": "admin", "password": "chalk"})
	return at
}

func (at *apiTest) login(path string, creds gin.H) string {
	at.t.Helper()
	w := at.do(http.MethodPost, path, "", creds)
	if w.Code != http.StatusOK {
		at.t.Fatalf("login %s returned %d: %s", path, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		at.t.Fatalf("login %s returned no token: %s", path, w.Body.String())
	}
	return resp.Token
}

func (at *apiTest) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	at.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			at.t.Fatal(err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	at.router.ServeHTTP(w, req)
	return w
}

func (at *apiTest) saveDraft(content string) *httptest.ResponseRecorder {
	return at.do(http.MethodPost, "/api/student/submissions/"+at.project.ProjectID, at.studentToken, gin.H{"content_raw": content})
}

func (at *apiTest) submit() *httptest.ResponseRecorder {
	return at.do(http.MethodPut, "/api/student/submissions/"+at.project.ProjectID+"/submit", at.studentToken, nil)
}

func TestStudentLoginRejectsBadPassword(t *testing.T) {
	at := newAPITest(t)

	w := at.do(http.MethodPost, "/api/student/auth/login", "", gin.H{"student_id": at.student.StudentID, "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestGetSubmissionReturnsNullBeforeFirstSave(t *testing.T) {
	at := newAPITest(t)

	w := at.do(http.MethodGet, "/api/student/submissions/"+at.project.ProjectID, at.studentToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != "null" {
		t.Errorf("body = %q, want null", body)
	}
}

func TestSaveDraftThenLocked(t *testing.T) {
	at := newAPITest(t)

	w := at.saveDraft("Once upon a time")
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", w.Code, w.Body.String())
	}
	var sub models.Submission
	if err := json.Unmarshal(w.Body.Bytes(), &sub); err != nil {
		t.Fatal(err)
	}
	if sub.Status != models.StatusDraft || sub.ContentRaw != "Once upon a time" {
		t.Errorf("saved submission = %+v", sub)
	}

	if w := at.submit(); w.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}

	if w := at.saveDraft("too late"); w.Code != http.StatusForbidden {
		t.Errorf("save after submit = %d, want 403", w.Code)
	}
}

func TestSaveDraftRequiresContentRaw(t *testing.T) {
	at := newAPITest(t)

	w := at.do(http.MethodPost, "/api/student/submissions/"+at.project.ProjectID, at.studentToken, gin.H{"content_html": "<p></p>"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	// An empty string is still content; clearing the page must persist.
	if w := at.saveDraft(""); w.Code != http.StatusOK {
		t.Errorf("empty save = %d: %s", w.Code, w.Body.String())
	}
}

func TestDuplicateSubmitReturns409(t *testing.T) {
	at := newAPITest(t)

	at.saveDraft("done")
	if w := at.submit(); w.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}
	if w := at.submit(); w.Code != http.StatusConflict {
		t.Errorf("duplicate submit = %d, want 409", w.Code)
	}
}

func TestSubmitWithoutDraftReturns404(t *testing.T) {
	at := newAPITest(t)

	if w := at.submit(); w.Code != http.StatusNotFound {
		t.Errorf("submit without draft = %d, want 404", w.Code)
	}
}

func TestUnlockRoundTrip(t *testing.T) {
	at := newAPITest(t)

	at.saveDraft("locked in")
	at.submit()

	var sub models.Submission
	if err := at.db.Where("student_id = ?", at.student.StudentID).First(&sub).Error; err != nil {
		t.Fatal(err)
	}

	// Students cannot unlock, their own submission included.
	w := at.do(http.MethodPost, "/api/submissions/"+sub.SubmissionID+"/unlock", at.studentToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("student unlock = %d, want 403", w.Code)
	}

	w = at.do(http.MethodPost, "/api/submissions/"+sub.SubmissionID+"/unlock", at.teacherToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("teacher unlock = %d: %s", w.Code, w.Body.String())
	}

	if w := at.saveDraft("locked in, and more"); w.Code != http.StatusOK {
		t.Errorf("save after unlock = %d: %s", w.Code, w.Body.String())
	}

	// Unlocking an already-draft submission conflicts.
	w = at.do(http.MethodPost, "/api/submissions/"+sub.SubmissionID+"/unlock", at.teacherToken, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("unlock of a draft = %d, want 409", w.Code)
	}
}

func TestListProjectSubmissionsIncludesWordCount(t *testing.T) {
	at := newAPITest(t)

	at.saveDraft("five words of sample text")

	w := at.do(http.MethodGet, "/api/submissions/project/"+at.project.ProjectID, at.teacherToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var rows []struct {
		StudentID string `json:"student_id"`
		Status    string `json:"status"`
		WordCount int    `json:"word_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].StudentID != at.student.StudentID || rows[0].WordCount != 5 {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestAssignedProjectsFilterByClassGroup(t *testing.T) {
	at := newAPITest(t)

	other := models.Project{Title: "Year 6 Persuasive", Genre: models.GenrePersuasive, AssignedClassGroups: datatypes.JSON(`["6B"]`), IsActive: true}
	if err := at.db.Create(&other).Error; err != nil {
		t.Fatal(err)
	}

	w := at.do(http.MethodGet, "/api/student/projects", at.studentToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var projects []models.Project
	if err := json.Unmarshal(w.Body.Bytes(), &projects); err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].ProjectID != at.project.ProjectID {
		t.Errorf("assigned projects = %+v", projects)
	}

	w = at.do(http.MethodGet, "/api/student/projects/"+other.ProjectID, at.studentToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("unassigned project fetch = %d, want 403", w.Code)
	}
}

func TestTeacherRoutesRejectStudents(t *testing.T) {
	at := newAPITest(t)

	w := at.do(http.MethodGet, "/api/submissions/project/"+at.project.ProjectID, at.studentToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("student on teacher route = %d, want 403", w.Code)
	}

	w = at.do(http.MethodGet, "/api/submissions/project/"+at.project.ProjectID, "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous on teacher route = %d, want 401", w.Code)
	}
}

func TestUploadRosterCreatesAndUpdates(t *testing.T) {
	at := newAPITest(t)

	csvBody := "Name, Year Level, ID Code, Class Group, Password, Avatar ID\n" +
		"Ada Wong, 6, S001, 6A, , fox\n" +
		"Dan Oto, 5, S010, 5A, carrots, owl\n" +
		", 5, S011, 5A, x, cat\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "roster.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(csvBody))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/roster/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+at.teacherToken)
	w := httptest.NewRecorder()
	at.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var result controllers.RosterImportResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Total != 3 || result.Created != 1 || result.Updated != 1 || len(result.Errors) != 1 {
		t.Errorf("result = %+v", result)
	}

	// Ada moved class group; her blank password column left the old one alone.
	var ada models.Student
	if err := at.db.Where("id_code = ?", "S001").First(&ada).Error; err != nil {
		t.Fatal(err)
	}
	if ada.ClassGroup != "6A" || ada.YearLevel != 6 {
		t.Errorf("updated student = %+v", ada)
	}
	if !controllers.CheckPasswordHash("fish", ada.PasswordHash) {
		t.Error("blank password column overwrote the existing hash")
	}

	var dan models.Student
	if err := at.db.Where("id_code = ?", "S010").First(&dan).Error; err != nil {
		t.Fatal(err)
	}
	if !controllers.CheckPasswordHash("carrots", dan.PasswordHash) {
		t.Error("new student password was not hashed from the CSV")
	}
}

func TestExportUnknownProjectReturns404(t *testing.T) {
	at := newAPITest(t)

	w := at.do(http.MethodGet, "/api/submissions/export/no-such-project", at.teacherToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

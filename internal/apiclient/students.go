package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"regportal/internal/domain"
)

// Registered is the backend's answer to a successful registration.
type Registered struct {
	StudentID  string
	Name       string
	Department string
}

// Register submits a new student registration.
func (c *Client) Register(ctx context.Context, form domain.RegistrationForm) (Registered, error) {
	body, err := jsonBody(form)
	if err != nil {
		return Registered{}, err
	}
	var out struct {
		StudentID string `json:"studentId"`
		Data      struct {
			Name       string `json:"name"`
			Department string `json:"department"`
		} `json:"data"`
	}
	err = c.do(ctx, request{
		endpoint:    "register",
		method:      http.MethodPost,
		path:        "/api/students/register",
		body:        body,
		contentType: "application/json",
		timeout:     RegisterTimeout,
		anonymous:   true,
	}, &out)
	if err != nil {
		return Registered{}, err
	}
	if out.StudentID == "" {
		return Registered{}, malformed("register", "response has no studentId")
	}
	return Registered{StudentID: out.StudentID, Name: out.Data.Name, Department: out.Data.Department}, nil
}

// Status fetches the current record for studentID.
func (c *Client) Status(ctx context.Context, studentID string) (domain.Student, error) {
	body, err := jsonBody(map[string]string{"studentId": studentID})
	if err != nil {
		return domain.Student{}, err
	}
	var out struct {
		Student *domain.Student `json:"student"`
	}
	err = c.do(ctx, request{
		endpoint:    "status",
		method:      http.MethodPost,
		path:        "/api/students/status",
		body:        body,
		contentType: "application/json",
		timeout:     StatusTimeout,
		anonymous:   true,
	}, &out)
	if err != nil {
		return domain.Student{}, err
	}
	if out.Student == nil {
		return domain.Student{}, malformed("status", "response has no student")
	}
	return *out.Student, nil
}

// decodeStudents decodes a {"students": [...]} body. Elements that do not
// decode as a student are dropped and counted.
func (c *Client) decodeStudents(endpoint string, raw *[]json.RawMessage) ([]domain.Student, error) {
	if raw == nil || *raw == nil {
		return nil, malformed(endpoint, `expected "students" array`)
	}
	students := make([]domain.Student, 0, len(*raw))
	dropped := 0
	for _, r := range *raw {
		var s domain.Student
		if err := json.Unmarshal(r, &s); err != nil {
			dropped++
			continue
		}
		students = append(students, s)
	}
	if dropped > 0 {
		c.log.WithField("endpoint", endpoint).Warnf("dropped %d undecodable student records", dropped)
	}
	return students, nil
}

type studentsResponse struct {
	Students *[]json.RawMessage `json:"students"`
}

// ListStudents fetches every student.
func (c *Client) ListStudents(ctx context.Context) ([]domain.Student, error) {
	var out studentsResponse
	err := c.do(ctx, request{
		endpoint: "list_students",
		method:   http.MethodGet,
		path:     "/api/students",
		timeout:  ListTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return c.decodeStudents("list_students", out.Students)
}

// PendingVerification lists the department's students awaiting documents.
func (c *Client) PendingVerification(ctx context.Context, department string) ([]domain.Student, error) {
	var out studentsResponse
	err := c.do(ctx, request{
		endpoint: "pending_verification",
		method:   http.MethodGet,
		path:     "/api/students/department/" + url.PathEscape(department) + "/pending-verification",
		timeout:  AdminTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return c.decodeStudents("pending_verification", out.Students)
}

// Uploaded is the backend's answer to a photo upload.
type Uploaded struct {
	ApplicationNumber string `json:"applicationNumber"`
	PhotoURL          string `json:"photoUrl"`
}

// UploadPhoto attaches a photo to studentID as a multipart form.
func (c *Client) UploadPhoto(ctx context.Context, studentID string, photo domain.Photo) (Uploaded, error) {
	filename := photo.Filename
	if filename == "" {
		filename = studentID + ".jpg"
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return Uploaded{}, errors.Wrap(err, "create form file")
	}
	if _, err := part.Write(photo.Data); err != nil {
		return Uploaded{}, errors.Wrap(err, "write photo")
	}
	if err := w.WriteField("studentId", studentID); err != nil {
		return Uploaded{}, errors.Wrap(err, "write studentId")
	}
	if err := w.Close(); err != nil {
		return Uploaded{}, errors.Wrap(err, "close multipart")
	}

	var out Uploaded
	err = c.do(ctx, request{
		endpoint:    "upload_photo",
		method:      http.MethodPost,
		path:        "/api/students/upload-photo",
		body:        &buf,
		contentType: w.FormDataContentType(),
		timeout:     UploadTimeout,
	}, &out)
	return out, err
}

// UpdateStatus moves a student to status. Every status change made by the
// admin desks goes through here.
func (c *Client) UpdateStatus(ctx context.Context, studentID string, status domain.StudentStatus) error {
	if !status.Valid() {
		return errors.Errorf("refusing to send unknown status %q", status)
	}
	body, err := jsonBody(map[string]domain.StudentStatus{"status": status})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		endpoint:    "update_status",
		method:      http.MethodPut,
		path:        "/api/students/" + url.PathEscape(studentID) + "/status",
		body:        body,
		contentType: "application/json",
		timeout:     AdminTimeout,
	}, nil)
}

// Documents fetches a student's verification record. A student with no
// record yet yields nil.
func (c *Client) Documents(ctx context.Context, studentID string) (domain.DocumentMap, error) {
	var out struct {
		Documents domain.DocumentMap `json:"documents"`
	}
	err := c.do(ctx, request{
		endpoint: "documents",
		method:   http.MethodGet,
		path:     "/api/students/" + url.PathEscape(studentID) + "/documents",
		timeout:  AdminTimeout,
	}, &out)
	return out.Documents, err
}

// SaveDocuments replaces a student's verification record.
func (c *Client) SaveDocuments(ctx context.Context, studentID string, docs domain.DocumentMap, departmentAdmin string) error {
	body, err := jsonBody(struct {
		Documents       domain.DocumentMap `json:"documents"`
		DepartmentAdmin string             `json:"departmentAdmin"`
	}{docs, departmentAdmin})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		endpoint:    "save_documents",
		method:      http.MethodPut,
		path:        "/api/students/" + url.PathEscape(studentID) + "/documents",
		body:        body,
		contentType: "application/json",
		timeout:     AdminTimeout,
	}, nil)
}

// BulkVerify marks every document of the given students verified.
func (c *Client) BulkVerify(ctx context.Context, studentIDs []string, verifiedBy string) (int, error) {
	body, err := jsonBody(struct {
		StudentIDs []string `json:"studentIds"`
		VerifiedBy string   `json:"verifiedBy"`
	}{studentIDs, verifiedBy})
	if err != nil {
		return 0, err
	}
	var out struct {
		Verified *int `json:"verifiedCount"`
	}
	err = c.do(ctx, request{
		endpoint:    "bulk_verify",
		method:      http.MethodPost,
		path:        "/api/students/bulk-verify-documents",
		body:        body,
		contentType: "application/json",
		timeout:     AdminTimeout,
	}, &out)
	if err != nil {
		return 0, err
	}
	if out.Verified == nil {
		return len(studentIDs), nil
	}
	return *out.Verified, nil
}

package backend

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"regportal/internal/auth"
	"regportal/internal/domain"
	"regportal/internal/validate"
)

const maxPhotoBytes = 10 << 20

func (s *Server) registerStudent(c *gin.Context) {
	var form domain.RegistrationForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	form = form.Trimmed()
	if dept, ok := domain.ResolveDepartment(form.Department); ok {
		form.Department = dept
	}
	if errs := validate.Registration(form, s.now()); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errs.Error(), "errors": errs})
		return
	}

	rec := StudentRecord{
		Student: domain.Student{
			StudentID:   NewStudentID(),
			Name:        form.Name,
			Email:       form.Email,
			Phone:       form.Phone,
			Department:  form.Department,
			ParentName:  form.ParentName,
			ParentEmail: form.ParentEmail,
			ParentPhone: form.ParentPhone,
			DOB:         form.DOB,
			Status:      domain.StatusPending,
		},
		RegisteredAt: s.now().UTC(),
		Documents:    domain.NewDocumentMap(),
	}
	if err := s.store.CreateStudent(c.Request.Context(), rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			fail(c, http.StatusConflict, "A student with this email or phone number is already registered")
			return
		}
		s.log.WithError(err).Error("create student")
		fail(c, http.StatusInternalServerError, "registration failed")
		return
	}
	s.log.WithField("student_id", rec.StudentID).WithField("department", rec.Department).Info("student registered")
	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Registration successful",
		"studentId": rec.StudentID,
		"data":      gin.H{"name": rec.Name, "department": rec.Department},
	})
}

func (s *Server) studentStatus(c *gin.Context) {
	var req struct {
		StudentID string `json:"studentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.StudentID) == "" {
		fail(c, http.StatusBadRequest, "studentId is required")
		return
	}
	rec, ok := s.student(c, strings.TrimSpace(req.StudentID))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": rec.View()})
}

// student loads id or writes the error response.
func (s *Server) student(c *gin.Context, id string) (StudentRecord, bool) {
	rec, err := s.store.GetStudent(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		fail(c, http.StatusNotFound, "Student not found")
		return StudentRecord{}, false
	}
	if err != nil {
		s.log.WithError(err).WithField("student_id", id).Error("load student")
		fail(c, http.StatusInternalServerError, "could not load student")
		return StudentRecord{}, false
	}
	return rec, true
}

func (s *Server) listStudents(c *gin.Context) {
	recs, err := s.store.ListStudents(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("list students")
		fail(c, http.StatusInternalServerError, "could not list students")
		return
	}
	out := make([]domain.Student, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.View())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": out})
}

func (s *Server) pendingVerification(c *gin.Context) {
	dept, ok := domain.ResolveDepartment(strings.ReplaceAll(c.Param("department"), "-", " "))
	if !ok {
		fail(c, http.StatusNotFound, "Unknown department")
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	if claims.Role == string(domain.RoleDepartmentAdmin) && claims.Department != dept {
		fail(c, http.StatusForbidden, "You can only view your own department")
		return
	}
	recs, err := s.store.ListStudents(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("list students")
		fail(c, http.StatusInternalServerError, "could not list students")
		return
	}
	out := make([]domain.Student, 0)
	for _, r := range recs {
		if r.Department != dept {
			continue
		}
		if r.Status == domain.StatusPhotoTaken || r.Status == domain.StatusDocumentsVerified {
			out = append(out, r.View())
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "department": dept, "students": out})
}

func (s *Server) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	studentID := strings.TrimSpace(c.PostForm("studentId"))
	if studentID == "" {
		fail(c, http.StatusBadRequest, "studentId is required")
		return
	}
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		fail(c, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read photo")
		return
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		fail(c, http.StatusBadRequest, "photo must be an image")
		return
	}
	rec, ok := s.student(c, studentID)
	if !ok {
		return
	}

	ext := path.Ext(header.Filename)
	if ext == "" {
		ext = mt.Extension()
	}
	key := "students/" + rec.StudentID + "/" + uuid.NewString() + ext
	url, err := s.photos.Put(c.Request.Context(), key, data, mt.String())
	if err != nil {
		s.log.WithError(err).WithField("student_id", studentID).Error("store photo")
		fail(c, http.StatusBadGateway, "photo upload failed")
		return
	}
	appNo := NewApplicationNumber(s.now())
	if rec.ApplicationNumber != nil {
		appNo = *rec.ApplicationNumber
	}
	if err := s.store.SetPhoto(c.Request.Context(), studentID, appNo, url); err != nil {
		s.log.WithError(err).WithField("student_id", studentID).Error("save photo")
		fail(c, http.StatusInternalServerError, "could not save photo")
		return
	}
	s.log.WithField("student_id", studentID).WithField("application_number", appNo).Info("photo stored")
	c.JSON(http.StatusOK, gin.H{"success": true, "applicationNumber": appNo, "photoUrl": url})
}

func (s *Server) updateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	status := domain.ParseStudentStatus(req.Status)
	if !status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	id := c.Param("id")
	if err := s.store.SetStatus(c.Request.Context(), id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			fail(c, http.StatusNotFound, "Student not found")
			return
		}
		s.log.WithError(err).WithField("student_id", id).Error("update status")
		fail(c, http.StatusInternalServerError, "could not update status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status updated", "status": status})
}

func (s *Server) documents(c *gin.Context) {
	rec, ok := s.student(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "documents": rec.Documents.WithDefaults()})
}

func (s *Server) saveDocuments(c *gin.Context) {
	var req struct {
		Documents       domain.DocumentMap `json:"documents"`
		DepartmentAdmin string             `json:"departmentAdmin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Documents == nil {
		fail(c, http.StatusBadRequest, "documents are required")
		return
	}
	for id := range req.Documents {
		if _, ok := domain.LookupDocumentType(id); !ok {
			fail(c, http.StatusBadRequest, "Unknown document type: "+id)
			return
		}
	}
	id := c.Param("id")
	docs := req.Documents.WithDefaults()
	if err := s.store.SaveDocuments(c.Request.Context(), id, docs); err != nil {
		if errors.Is(err, ErrNotFound) {
			fail(c, http.StatusNotFound, "Student not found")
			return
		}
		s.log.WithError(err).WithField("student_id", id).Error("save documents")
		fail(c, http.StatusInternalServerError, "could not save documents")
		return
	}
	s.log.WithField("student_id", id).WithField("by", req.DepartmentAdmin).Info("documents saved")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Documents saved", "progress": docs.Progress()})
}

func (s *Server) bulkVerify(c *gin.Context) {
	var req struct {
		StudentIDs []string `json:"studentIds"`
		VerifiedBy string   `json:"verifiedBy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.StudentIDs) == 0 {
		fail(c, http.StatusBadRequest, "studentIds are required")
		return
	}
	by := strings.TrimSpace(req.VerifiedBy)
	if by == "" {
		by = "Department Admin"
	}
	ctx := c.Request.Context()
	verified := 0
	for _, id := range req.StudentIDs {
		rec, err := s.store.GetStudent(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("student_id", id).Warn("bulk verify skipped student")
			continue
		}
		at := s.now().UTC()
		docs := rec.Documents.WithDefaults()
		for _, dt := range domain.DocumentTypes {
			chk := docs[dt.ID]
			if !chk.Verified {
				stampAt, stampBy := at, by
				chk.Verified, chk.VerifiedAt, chk.VerifiedBy = true, &stampAt, &stampBy
			}
			docs[dt.ID] = chk
		}
		if err := s.store.SaveDocuments(ctx, id, docs); err != nil {
			s.log.WithError(err).WithField("student_id", id).Warn("bulk verify save failed")
			continue
		}
		if err := s.store.SetStatus(ctx, id, domain.StatusDocumentsVerified); err != nil {
			s.log.WithError(err).WithField("student_id", id).Warn("bulk verify status failed")
			continue
		}
		verified++
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verifiedCount": verified})
}

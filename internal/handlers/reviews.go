package handlers

import (
	"errors"
	"math"

	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReviewHandler handles patient reviews of doctors.
type ReviewHandler struct {
	DB *gorm.DB
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

// recomputeDoctorRating recalculates a doctor's aggregate rating as the mean
// of their review ratings rounded to one decimal, or 0 with no reviews.
func recomputeDoctorRating(db *gorm.DB, doctorID string) error {
	var avg *float64
	if err := db.Model(&models.Review{}).
		Where("doctor_id = ?", doctorID).
		Select("AVG(rating)").
		Scan(&avg).Error; err != nil {
		return err
	}

	rating := 0.0
	if avg != nil {
		rating = math.Round(*avg*10) / 10
	}
	return db.Model(&models.Doctor{}).
		Where("id = ?", doctorID).
		Update("rating", rating).Error
}

// ReviewRequest represents the request body for creating a review.
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// UpdateReviewRequest represents the request body for editing a review.
// Omitted fields keep their current value.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment *string `json:"comment"`
}

// CreateReview lets a patient review a doctor once. A second review for the
// same doctor is a conflict.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	doctorID := c.Param("doctorId")

	var req ReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var doctor models.Doctor
	if err := h.DB.First(&doctor, "id = ?", doctorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var count int64
	if err := h.DB.Model(&models.Review{}).
		Where("doctor_id = ? AND patient_id = ?", doctorID, patientID).
		Count(&count).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if count > 0 {
		utils.Conflict(c, "You have already reviewed this doctor")
		return
	}

	review := models.Review{
		DoctorID:  doctorID,
		PatientID: patientID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		utils.InternalServerError(c, "Failed to create review: "+err.Error())
		return
	}

	if err := recomputeDoctorRating(h.DB, doctorID); err != nil {
		utils.InternalServerError(c, "Failed to update doctor rating: "+err.Error())
		return
	}

	utils.Created(c, "Review created successfully", review)
}

// GetDoctorReviews lists all reviews for a doctor, newest first.
func (h *ReviewHandler) GetDoctorReviews(c *gin.Context) {
	doctorID := c.Param("doctorId")

	var reviews []models.Review
	if err := h.DB.Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("created_at desc").
		Find(&reviews).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reviews: "+err.Error())
		return
	}

	type reviewView struct {
		models.Review
		PatientName string `json:"patientName"`
	}
	views := make([]reviewView, len(reviews))
	for i := range reviews {
		views[i] = reviewView{Review: reviews[i], PatientName: reviews[i].Patient.Name}
	}

	utils.Success(c, "Reviews fetched successfully", views)
}

// UpdateReview lets the author change their review's rating or comment.
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	reviewID := c.Param("reviewId")

	var req UpdateReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var review models.Review
	if err := h.DB.First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Review not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if review.PatientID != patientID {
		utils.Forbidden(c, "You can only edit your own reviews")
		return
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	if err := h.DB.Save(&review).Error; err != nil {
		utils.InternalServerError(c, "Failed to update review: "+err.Error())
		return
	}

	if err := recomputeDoctorRating(h.DB, review.DoctorID); err != nil {
		utils.InternalServerError(c, "Failed to update doctor rating: "+err.Error())
		return
	}

	utils.Success(c, "Review updated successfully", review)
}

// DeleteReview lets the author remove their review.
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	patientID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	reviewID := c.Param("reviewId")

	var review models.Review
	if err := h.DB.First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Review not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if review.PatientID != patientID {
		utils.Forbidden(c, "You can only delete your own reviews")
		return
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete review: "+err.Error())
		return
	}

	if err := recomputeDoctorRating(h.DB, review.DoctorID); err != nil {
		utils.InternalServerError(c, "Failed to update doctor rating: "+err.Error())
		return
	}

	utils.Success(c, "Review deleted successfully", nil)
}

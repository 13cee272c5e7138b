package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	"github.com/yourusername/survey-rewards-api/internal/handler/dto"
	"github.com/yourusername/survey-rewards-api/internal/handler/helper"
	"github.com/yourusername/survey-rewards-api/internal/service"
)

// SurveyHandler обрабатывает запросы, связанные с опросами
type SurveyHandler struct {
	surveyService *service.SurveyService
}

// NewSurveyHandler создает новый обработчик опросов
func NewSurveyHandler(surveyService *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService}
}

// ListAvailable возвращает опросы, которые пользователь еще не проходил
// GET /surveys?category=
func (h *SurveyHandler) ListAvailable(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	surveys, err := h.surveyService.ListAvailableSurveys(c.Request.Context(), userID, c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, surveys)
}

// GetSurvey возвращает опрос с вопросами
// GET /surveys/:id
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	surveyID := c.MustGet("surveyID").(uint)

	survey, err := h.surveyService.GetSurveyByID(c.Request.Context(), surveyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

// CreateSurvey создает опрос (только администратор)
// POST /surveys
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	var req dto.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	survey, err := h.surveyService.CreateSurvey(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, survey)
}

// SubmitResponse сохраняет ответы пользователя и начисляет баллы
// POST /surveys/:id/respond
func (h *SurveyHandler) SubmitResponse(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	surveyID := c.MustGet("surveyID").(uint)

	var req dto.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.surveyService.SubmitResponse(c.Request.Context(), service.SubmitInput{
		SurveyID:  surveyID,
		UserID:    userID,
		UserEmail: helper.CurrentUserEmail(c),
		Answers:   req.Answers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// MyResponses возвращает ответы пользователя вместе с опросами
// GET /surveys/responses
func (h *SurveyHandler) MyResponses(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	responses, err := h.surveyService.GetUserResponses(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// ExportResponses выгружает ответы на опрос в CSV или Excel
// GET /surveys/:id/responses/export?format=csv|xlsx
func (h *SurveyHandler) ExportResponses(c *gin.Context) {
	surveyID := c.MustGet("surveyID").(uint)
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		respondFail(c, http.StatusBadRequest, "validation_error", "format must be csv or xlsx")
		return
	}

	survey, responses, err := h.surveyService.GetExportData(c.Request.Context(), surveyID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("survey_%d_responses_%s", surveyID, time.Now().Format("2006-01-02"))
	header, rows := exportTable(survey, responses)

	if format == "xlsx" {
		h.exportXLSX(c, header, rows, filename)
		return
	}
	h.exportCSV(c, header, rows, filename)
}

// exportTable строит таблицу: служебные колонки и по колонке на каждый вопрос
func exportTable(survey *entity.Survey, responses []entity.SurveyResponse) ([]string, [][]string) {
	header := []string{"Response ID", "User ID", "User Name", "Email", "Submitted At", "Points Earned"}
	for _, q := range survey.Questions {
		header = append(header, sanitizeForExcel(q.Text))
	}

	rows := make([][]string, 0, len(responses))
	for _, r := range responses {
		name, email := "", ""
		if r.User != nil {
			name, email = r.User.Name, r.User.Email
		}
		answers := r.Answers.ByQuestion()

		row := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			strconv.FormatUint(uint64(r.UserID), 10),
			sanitizeForExcel(name),
			sanitizeForExcel(email),
			r.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.PointsEarned),
		}
		for _, q := range survey.Questions {
			row = append(row, sanitizeForExcel(strings.Join(answers[q.ID].Values(), "; ")))
		}
		rows = append(rows, row)
	}
	return header, rows
}

// exportCSV экспортирует таблицу в CSV с правильным экранированием спецсимволов
func (h *SurveyHandler) exportCSV(c *gin.Context, header []string, rows [][]string, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(header); err != nil {
		log.Printf("[SurveyHandler] Ошибка записи заголовков CSV: %v", err)
		return
	}
	if err := writer.WriteAll(rows); err != nil {
		log.Printf("[SurveyHandler] Ошибка записи CSV: %v", err)
	}
}

// exportXLSX экспортирует таблицу в Excel с использованием StreamWriter
func (h *SurveyHandler) exportXLSX(c *gin.Context, header []string, rows [][]string, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Responses"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		log.Printf("[SurveyHandler] Ошибка переименования листа: %v", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[SurveyHandler] Ошибка создания StreamWriter: %v", err)
		respondFail(c, http.StatusInternalServerError, "internal_error", "Failed to create Excel file")
		return
	}

	if err := sw.SetRow("A1", toCells(header)); err != nil {
		log.Printf("[SurveyHandler] Ошибка записи заголовков: %v", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			log.Printf("[SurveyHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		log.Printf("[SurveyHandler] Ошибка при Flush: %v", err)
		respondFail(c, http.StatusInternalServerError, "internal_error", "Failed to create Excel file")
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[SurveyHandler] Ошибка записи Excel в response: %v", err)
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

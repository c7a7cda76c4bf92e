package models

import (
	"fmt"
	"strings"
	"time"
)

// FlexibleBool - гибкий boolean тип, поддерживающий строки и числа
type FlexibleBool bool

// UnmarshalJSON поддерживает парсинг boolean из строки, числа и boolean
func (fb *FlexibleBool) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)

	b, ok := ParseBool(str)
	if !ok {
		return fmt.Errorf("invalid boolean value: %s", str)
	}
	*fb = FlexibleBool(b)
	return nil
}

// Bool возвращает bool значение
func (fb FlexibleBool) Bool() bool {
	return bool(fb)
}

// ParseBool accepts true/false, 1/0, yes/no, on/off in any case
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

// TimeWindowInput - окно проведения события во входящем запросе
type TimeWindowInput struct {
	Date      string `json:"date" binding:"required,yyyymmdd"`
	StartTime string `json:"start_time" binding:"required,hhmmss"`
	EndTime   string `json:"end_time" binding:"required,hhmmss"`
}

// LocationInput - координаты события
type LocationInput struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

// CreateEventRequest - модель для создания события.
// Either Dates or Start/End must be supplied.
type CreateEventRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        EventType         `json:"type"`
	City        string            `json:"city" binding:"omitempty,objectid"`
	Currency    string            `json:"currency" binding:"omitempty,objectid"`
	MinPrice    *int64            `json:"min_price"`
	MaxPrice    *int64            `json:"max_price"`
	Interests   []string          `json:"interests" binding:"dive,objectid"`
	Dates       []TimeWindowInput `json:"dates" binding:"dive"`
	Start       *time.Time        `json:"start"`
	End         *time.Time        `json:"end"`
	Location    *LocationInput    `json:"location"`
}

// UpdateEventRequest - частичное обновление события автором
type UpdateEventRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	City        *string           `json:"city" binding:"omitempty,objectid"`
	Currency    *string           `json:"currency" binding:"omitempty,objectid"`
	MinPrice    *int64            `json:"min_price"`
	MaxPrice    *int64            `json:"max_price"`
	Interests   []string          `json:"interests" binding:"omitempty,dive,objectid"`
	Dates       []TimeWindowInput `json:"dates" binding:"omitempty,dive"`
	Start       *time.Time        `json:"start"`
	End         *time.Time        `json:"end"`
	Location    *LocationInput    `json:"location"`
}

// CreateEventResponse - модель ответа при создании события
type CreateEventResponse struct {
	ID string `json:"id"`
}

// EventResponse - событие с флагами для текущего пользователя
type EventResponse struct {
	*Event
	IsUpvoted   bool `json:"is_upvoted"`
	IsFavourite bool `json:"is_favourite"`
}

// RejectRequest - причина отклонения
type RejectRequest struct {
	Text string `json:"text" binding:"required"`
}

// ComplaintRequest - текст жалобы
type ComplaintRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReplyComplaintRequest - ответ модератора на жалобу
type ReplyComplaintRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// SubscriptionRequest - подписка на интересы в текущем городе.
// All=true subscribes to every interest available in the city.
type SubscriptionRequest struct {
	All       FlexibleBool `json:"all"`
	Interests []string     `json:"interests" binding:"dive,objectid"`
}

// SetCityRequest - смена текущего города
type SetCityRequest struct {
	City string `json:"city" binding:"required,objectid"`
}

// CreateInterestRequest - создание интереса
type CreateInterestRequest struct {
	Title       string   `json:"title" binding:"required"`
	IsGlobal    bool     `json:"is_global"`
	LocalCities []string `json:"local_cities" binding:"dive,objectid"`
	Parent      *string  `json:"parent" binding:"omitempty,objectid"`
	IsActive    *bool    `json:"is_active"`
}

// Page - постраничный ответ
type Page[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Results  []T   `json:"results"`
}

// Results - ответ без пагинации
type Results[T any] struct {
	Results []T `json:"results"`
}

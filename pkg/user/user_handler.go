package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fintrack/fintrack/internal/rest"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Uid         string      `json:"uid"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Email       string      `json:"email"`
	Settings    SettingsDTO `json:"settings"`
}

type SettingsDTO struct {
	Timezone     string `json:"timezone"`
	WeekStartDay string `json:"weekStartDay"`
	Currency     string `json:"currency"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CreateUser registers a new user in the system.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Debug("Creating user")

	var userDTO UserDTO
	if err := json.NewDecoder(r.Body).Decode(&userDTO); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}

	if len(userDTO.Username) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Username is required"})
		return
	}

	user, err := dtoToUser(userDTO)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	created, err := h.userService.CreateUser(r.Context(), user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(userToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// CurrentUser returns the user resolved from the X-User-Id header.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user, err := h.userService.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			http.Error(w, "no user in request context", http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(userToDTO(user)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var userDTO UserDTO
	if err := json.NewDecoder(r.Body).Decode(&userDTO); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body format"})
		return
	}

	user, err := dtoToUser(userDTO)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: err.Error()})
		return
	}

	updated, err := h.userService.UpdateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(userToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) IsUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	username := r.URL.Query().Get("username")
	if username == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Username is required"})
		return
	}

	available, err := h.userService.IsUsernameAvailable(r.Context(), username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"available": available})
}

func userToDTO(user User) UserDTO {
	return UserDTO{
		Uid:         user.Uid,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Settings: SettingsDTO{
			Timezone:     user.Settings.Timezone,
			WeekStartDay: strings.ToLower(user.Settings.WeekFirstDay.String()),
			Currency:     user.Settings.Currency,
		},
	}
}

func dtoToUser(dto UserDTO) (User, error) {
	weekFirstDay := time.Monday
	if dto.Settings.WeekStartDay != "" {
		var err error
		weekFirstDay, err = parseWeekday(dto.Settings.WeekStartDay)
		if err != nil {
			return User{}, err
		}
	}
	return User{
		Uid:         dto.Uid,
		Username:    dto.Username,
		DisplayName: dto.DisplayName,
		Email:       dto.Email,
		Settings: Settings{
			Timezone:     dto.Settings.Timezone,
			WeekFirstDay: weekFirstDay,
			Currency:     dto.Settings.Currency,
		},
	}, nil
}

func parseWeekday(day string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), day) {
			return d, nil
		}
	}
	return time.Monday, errors.New("invalid week start day: " + day)
}

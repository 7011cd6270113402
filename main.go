package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chatlink/internal/auth"
	"chatlink/internal/chat"
	"chatlink/internal/config"
	"chatlink/internal/directory"
	"chatlink/internal/logger"
	"chatlink/internal/presence"
	"chatlink/internal/profile"
	"chatlink/internal/registry"
	"chatlink/internal/ws"
	"chatlink/store/contact"
	"chatlink/store/message"
	"chatlink/store/user"

	_ "github.com/lib/pq"
)

var addr = flag.String("addr", ":8080", "http service address")

// Global instances (in a real app, use dependency injection)
var (
	userStore     user.Store
	authenticator *auth.Authenticator
	profiles      *profile.Store
)

func main() {
	flag.Parse()

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	zl := logger.Log

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zl.Warn("error closing db", zap.Error(err))
		}
	}()

	if err := db.Ping(); err != nil {
		// Just log warning, maybe DB isn't up yet (Docker)
		zl.Warn("database unreachable", zap.Error(err))
	} else {
		zl.Info("connected to database")
	}

	userStore = user.NewSQLStore(db)
	messageStore := message.NewSQLStore(db)
	contactStore := contact.NewSQLStore(db)

	authenticator = auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	profiles = profile.New(cfg.ProfileDir, cfg.PublicBaseURL)

	reg := registry.New(zl)
	chatService := chat.NewService(userStore, messageStore, contactStore, reg, profiles, zl)
	directoryService := directory.NewService(userStore, contactStore, profiles, zl)
	presenceUpdater := presence.NewUpdater(userStore, contactStore, messageStore, zl)
	endpoint := ws.NewEndpoint(reg, chatService, directoryService, presenceUpdater, userStore, zl)

	// API Endpoints
	http.HandleFunc("/api/register", handleRegister)
	http.HandleFunc("/api/login", handleLogin)
	http.HandleFunc("/api/users/", handleGetUser)
	http.HandleFunc("/api/profile-image", handleProfileImage)

	// Profile images are plain static files.
	http.Handle("/profile-images/",
		http.StripPrefix("/profile-images/", http.FileServer(http.Dir(profiles.Dir()))))

	// WebSocket Endpoint
	http.Handle("/ws", endpoint)

	// Health Check
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			zl.Warn("health check write error", zap.Error(err))
		}
	})

	zl.Info("server starting", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, nil); err != nil {
		zl.Fatal("ListenAndServe failed", zap.Error(err))
	}
}

func handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		CountryCode string `json:"countryCode"`
		ContactNo   string `json:"contactNo"`
		Password    string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch {
	case strings.TrimSpace(req.FirstName) == "":
		http.Error(w, "First name is required", http.StatusBadRequest)
		return
	case strings.TrimSpace(req.LastName) == "":
		http.Error(w, "Last name is required", http.StatusBadRequest)
		return
	case strings.TrimSpace(req.CountryCode) == "":
		http.Error(w, "Country code is required", http.StatusBadRequest)
		return
	case strings.TrimSpace(req.ContactNo) == "":
		http.Error(w, "Contact number is required", http.StatusBadRequest)
		return
	case req.Password == "":
		http.Error(w, "Password is required", http.StatusBadRequest)
		return
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	newUser := &user.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CountryCode:  req.CountryCode,
		ContactNo:    req.ContactNo,
		PasswordHash: string(hashedBytes),
		Status:       user.StatusOffline,
	}

	if err := userStore.Create(r.Context(), newUser); err != nil {
		if errors.Is(err, user.ErrDuplicateContactNo) {
			http.Error(w, "This number already exists!", http.StatusConflict)
			return
		}
		logger.Log.Error("error creating user", zap.Error(err))
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]any{"id": newUser.ID}); err != nil {
		logger.Log.Warn("register response write error", zap.Error(err))
	}
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ContactNo string `json:"contactNo"`
		Password  string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ContactNo == "" || req.Password == "" {
		http.Error(w, "Contact number and password are required", http.StatusBadRequest)
		return
	}

	u, err := userStore.GetByContactNo(r.Context(), req.ContactNo)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := authenticator.GenerateToken(u.ID, u.ContactNo)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"token": token, "userId": u.ID}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Log.Warn("login response write error", zap.Error(err))
	}
}

func handleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/users/")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid user ID format", http.StatusBadRequest)
		return
	}

	u, err := userStore.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"id":           u.ID,
		"firstName":    u.FirstName,
		"lastName":     u.LastName,
		"countryCode":  u.CountryCode,
		"contactNo":    u.ContactNo,
		"status":       u.Status,
		"createdAt":    u.CreatedAt,
		"updatedAt":    u.UpdatedAt,
		"profileImage": profiles.ImageURL(u.ID),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Log.Warn("user response write error", zap.Error(err))
	}
}

func handleProfileImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := authenticateRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	file, _, err := r.FormFile("profileImage")
	if err != nil {
		http.Error(w, "profileImage file is required", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if err := profiles.Save(userID, file); err != nil {
		logger.Log.Error("saving profile image failed", zap.Int("userId", userID), zap.Error(err))
		http.Error(w, "Failed to save profile image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"profileImage": profiles.ImageURL(userID)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Log.Warn("profile image response write error", zap.Error(err))
	}
}

func authenticateRequest(r *http.Request) (int, error) {
	token := ""
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if token == "" {
		return 0, auth.ErrInvalidToken
	}

	claims, err := authenticator.ValidateToken(token)
	if err != nil {
		return 0, err
	}
	if claims.UserID() <= 0 {
		return 0, auth.ErrInvalidToken
	}
	return claims.UserID(), nil
}

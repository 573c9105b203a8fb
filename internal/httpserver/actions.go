package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"citizenconnect/webclient/internal/apiclient"
	"citizenconnect/webclient/internal/audit"
	"citizenconnect/webclient/internal/domain"
	"citizenconnect/webclient/internal/routes"
)

const maxActionBody = 1 << 20

func (h *handler) registerActionHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /actions/login", h.handleLogin)
	mux.HandleFunc("POST /actions/register", h.handleRegister)
	mux.HandleFunc("POST /actions/logout", h.handleLogout)

	mux.HandleFunc("POST /actions/issues", h.handleCreateIssue)
	mux.HandleFunc("POST /actions/issues/{id}/comments", h.handleAddComment)
	mux.HandleFunc("PUT /actions/issues/{id}/respond", h.handleRespond)
	mux.HandleFunc("PUT /actions/issues/{id}/resolve", h.handleResolve)

	mux.HandleFunc("POST /actions/updates", h.handleCreateUpdate)
	mux.HandleFunc("POST /actions/feedback", h.handleSubmitFeedback)
	mux.HandleFunc("PUT /actions/profile", h.handleUpdateProfile)

	mux.HandleFunc("PUT /actions/admin/users/{id}/role", h.handleUpdateRole)
	mux.HandleFunc("PUT /actions/admin/users/{id}/toggle-status", h.handleToggleStatus)
	mux.HandleFunc("DELETE /actions/admin/users/{id}", h.handleDeleteUser)

	mux.HandleFunc("PUT /actions/moderation/comments/{id}/unflag", h.handleUnflagComment)
	mux.HandleFunc("DELETE /actions/moderation/comments/{id}", h.handleDeleteComment)
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(dst)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// requireViewer stops the action unless a viewer is signed in and, when
// roles are given, holds one of them.
func (h *handler) requireViewer(w http.ResponseWriter, r *http.Request, roles ...domain.Role) (*domain.User, bool) {
	v, user := h.viewer()
	if !v.Authenticated {
		writeAction(w, http.StatusUnauthorized, actionResult{Redirect: routes.LoginPath, Toasts: h.Toasts.Drain()})
		return nil, false
	}
	if len(roles) > 0 && !slices.Contains(roles, v.Role) {
		h.record(r, user, audit.ActionRouteDenied, r.URL.Path, audit.OutcomeDenied, "role "+string(v.Role))
		h.Toasts.Error("You do not have permission to perform this action")
		writeAction(w, http.StatusForbidden, actionResult{Toasts: h.Toasts.Drain()})
		return nil, false
	}
	if user == nil {
		user = &domain.User{Role: v.Role}
	}
	return user, true
}

func (h *handler) invalid(w http.ResponseWriter, message string) {
	h.Toasts.Error(message)
	writeAction(w, http.StatusBadRequest, actionResult{Toasts: h.Toasts.Drain()})
}

func (h *handler) succeed(w http.ResponseWriter, r *http.Request, user *domain.User, action audit.Action, target, message string, res actionResult) {
	if action != "" {
		h.record(r, user, action, target, audit.OutcomeSuccess, "")
	}
	h.Toasts.Success(message)
	res.Toasts = h.Toasts.Drain()
	writeAction(w, http.StatusOK, res)
}

func (h *handler) failAction(w http.ResponseWriter, r *http.Request, user *domain.User, action audit.Action, target string, err error, fallback string) {
	if action != "" {
		h.record(r, user, action, target, audit.OutcomeFailure, err.Error())
	}
	h.fail(w, r, err, fallback)
}

func statusFor(err error) int {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds apiclient.Credentials
	if err := decodeBody(r, &creds); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		h.invalid(w, "Email and password are required")
		return
	}

	user, err := h.Store.Login(r.Context(), creds)
	if err != nil {
		// A rejected sign-in is not a session expiry.
		h.History.TakeRedirect()
		h.record(r, &domain.User{Email: creds.Email}, audit.ActionLogin, creds.Email, audit.OutcomeFailure, err.Error())
		h.Toasts.Error(apiclient.Message(err, "Login failed. Please check your credentials."))
		writeAction(w, statusFor(err), actionResult{Toasts: h.Toasts.Drain()})
		return
	}

	v, _ := h.viewer()
	h.succeed(w, r, &user, audit.ActionLogin, user.Email, "Login successful! Welcome back.", actionResult{
		Redirect: routes.DashboardPath,
		Data:     newViewerView(v, &user),
	})
}

type registerForm struct {
	apiclient.RegisterRequest
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := decodeBody(r, &form); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	req := form.RegisterRequest
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FullName == "" || req.Email == "" {
		h.invalid(w, "Please fill in all required fields")
		return
	}
	if req.Password != form.ConfirmPassword {
		h.invalid(w, "Passwords do not match")
		return
	}
	if len(req.Password) < 6 {
		h.invalid(w, "Password must be at least 6 characters")
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleCitizen
	}

	res, err := h.Store.Register(r.Context(), req)
	if err != nil {
		h.History.TakeRedirect()
		h.record(r, &domain.User{Email: req.Email}, audit.ActionRegister, req.Email, audit.OutcomeFailure, err.Error())
		h.Toasts.Error(apiclient.Message(err, "Registration failed"))
		writeAction(w, statusFor(err), actionResult{Toasts: h.Toasts.Drain()})
		return
	}

	redirect := routes.LoginPath
	if res.Token != "" {
		redirect = routes.DashboardPath
	}
	h.succeed(w, r, &res.User, audit.ActionRegister, res.User.Email, "Registration successful! Please login.", actionResult{
		Redirect: redirect,
		Data:     newUserViews([]domain.User{res.User})[0],
	})
}

func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, user := h.viewer()
	if err := h.Store.Logout(); err != nil {
		h.Logger.Error("clear session failed", "error", err)
	}
	h.record(r, user, audit.ActionLogout, "", audit.OutcomeSuccess, "")
	writeAction(w, http.StatusOK, actionResult{Redirect: routes.LoginPath, Toasts: h.Toasts.Drain()})
}

func (h *handler) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RoleCitizen)
	if !ok {
		return
	}
	var req apiclient.CreateIssueRequest
	if err := decodeBody(r, &req); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" || strings.TrimSpace(req.Category) == "" {
		h.invalid(w, "Please fill in all required fields")
		return
	}

	issue, err := h.Store.CreateIssue(r.Context(), req)
	if err != nil {
		h.failAction(w, r, user, audit.ActionIssueCreate, req.Title, err, "Failed to create issue")
		return
	}
	h.succeed(w, r, user, audit.ActionIssueCreate, strconv.FormatInt(issue.ID, 10), "Issue reported successfully!", actionResult{
		Redirect: "/issues",
		Data:     newIssueView(issue),
	})
}

func (h *handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid issue")
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Content) == "" {
		h.invalid(w, "Comment cannot be empty")
		return
	}

	comment, err := h.API.Comments.Add(r.Context(), id, strings.TrimSpace(body.Content))
	if err != nil {
		h.failAction(w, r, user, "", "", err, "Failed to add comment")
		return
	}
	h.succeed(w, r, user, "", "", "Comment added", actionResult{Data: newCommentViews([]domain.Comment{comment})[0]})
}

func (h *handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RolePolitician)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid issue")
		return
	}
	var body struct {
		Response string `json:"response"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Response) == "" {
		h.invalid(w, "Response cannot be empty")
		return
	}

	target := strconv.FormatInt(id, 10)
	if !h.assignedToViewer(w, r, user, id, audit.ActionIssueRespond, "respond to", "Failed to submit response") {
		return
	}
	issue, err := h.API.Issues.Respond(r.Context(), id, strings.TrimSpace(body.Response))
	if err != nil {
		h.failAction(w, r, user, audit.ActionIssueRespond, target, err, "Failed to submit response")
		return
	}
	h.Store.SetCurrentIssue(&issue)
	h.succeed(w, r, user, audit.ActionIssueRespond, target, "Response submitted", actionResult{Data: newIssueView(issue)})
}

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RolePolitician)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid issue")
		return
	}
	var body struct {
		ResolutionNotes string `json:"resolutionNotes"`
	}
	if err := decodeBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
		h.invalid(w, "Invalid request")
		return
	}

	target := strconv.FormatInt(id, 10)
	if !h.assignedToViewer(w, r, user, id, audit.ActionIssueResolve, "resolve", "Failed to resolve issue") {
		return
	}
	issue, err := h.API.Issues.Resolve(r.Context(), id, strings.TrimSpace(body.ResolutionNotes))
	if err != nil {
		h.failAction(w, r, user, audit.ActionIssueResolve, target, err, "Failed to resolve issue")
		return
	}
	h.Store.SetCurrentIssue(&issue)
	h.succeed(w, r, user, audit.ActionIssueResolve, target, "Issue marked as resolved", actionResult{Data: newIssueView(issue)})
}

// assignedToViewer loads the issue and allows the action only when it is
// open and assigned to the signed-in politician.
func (h *handler) assignedToViewer(w http.ResponseWriter, r *http.Request, user *domain.User, id int64, action audit.Action, verb, fallback string) bool {
	target := strconv.FormatInt(id, 10)
	issue, err := h.API.Issues.ByID(r.Context(), id)
	if err != nil {
		h.failAction(w, r, user, action, target, err, fallback)
		return false
	}
	if canRespond(issue, user) {
		return true
	}
	h.record(r, user, action, target, audit.OutcomeDenied, "issue not open or not assigned to viewer")
	h.Toasts.Error("You can only " + verb + " open issues assigned to you")
	writeAction(w, http.StatusForbidden, actionResult{Toasts: h.Toasts.Drain()})
	return false
}

func (h *handler) handleCreateUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RolePolitician)
	if !ok {
		return
	}
	req := apiclient.UpdateRequest{Published: true}
	if err := decodeBody(r, &req); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		h.invalid(w, "Please fill in all required fields")
		return
	}

	update, err := h.Store.CreateUpdate(r.Context(), req)
	if err != nil {
		h.failAction(w, r, user, audit.ActionUpdateCreate, req.Title, err, "Failed to post update")
		return
	}
	h.succeed(w, r, user, audit.ActionUpdateCreate, strconv.FormatInt(update.ID, 10), "Update posted successfully!", actionResult{
		Redirect: "/updates",
		Data:     newUpdateViews([]domain.Update{update})[0],
	})
}

func (h *handler) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r)
	if !ok {
		return
	}
	var req apiclient.FeedbackRequest
	if err := decodeBody(r, &req); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	if req.PoliticianID <= 0 || req.Rating == 0 {
		h.invalid(w, "Please select a politician and rating")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		h.invalid(w, "Rating must be between 1 and 5")
		return
	}

	target := strconv.FormatInt(req.PoliticianID, 10)
	fb, err := h.API.Feedback.Submit(r.Context(), req)
	if err != nil {
		h.failAction(w, r, user, audit.ActionFeedbackSubmit, target, err, "Failed to submit feedback")
		return
	}
	h.succeed(w, r, user, audit.ActionFeedbackSubmit, target, "Feedback submitted successfully!", actionResult{
		Data: newFeedbackViews([]domain.Feedback{fb})[0],
	})
}

func (h *handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r)
	if !ok {
		return
	}
	if user.ID <= 0 {
		h.invalid(w, "Profile is not loaded yet")
		return
	}
	var req apiclient.ProfileUpdate
	if err := decodeBody(r, &req); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		h.invalid(w, "Full name is required")
		return
	}

	target := strconv.FormatInt(user.ID, 10)
	updated, err := h.API.Users.Update(r.Context(), user.ID, req)
	if err != nil {
		h.failAction(w, r, user, audit.ActionProfileUpdate, target, err, "Failed to update profile")
		return
	}
	if err := h.Store.UpdateUser(updated); err != nil {
		h.Logger.Error("persist profile failed", "error", err)
	}
	h.succeed(w, r, &updated, audit.ActionProfileUpdate, target, "Profile updated successfully!", actionResult{
		Data: newUserViews([]domain.User{updated})[0],
	})
}

func (h *handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RoleAdmin)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid user")
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		h.invalid(w, "Invalid request")
		return
	}
	role, err := domain.ParseRole(body.Role)
	if err != nil {
		h.invalid(w, "Invalid role")
		return
	}

	target := strconv.FormatInt(id, 10)
	updated, err := h.API.Users.UpdateRole(r.Context(), id, role)
	if err != nil {
		h.failAction(w, r, user, audit.ActionUserRole, target, err, "Failed to update role")
		return
	}
	h.succeed(w, r, user, audit.ActionUserRole, target, "Role updated successfully", actionResult{
		Data: newUserViews([]domain.User{updated})[0],
	})
}

func (h *handler) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RoleAdmin)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid user")
		return
	}

	target := strconv.FormatInt(id, 10)
	updated, err := h.API.Users.ToggleStatus(r.Context(), id)
	if err != nil {
		h.failAction(w, r, user, audit.ActionUserToggle, target, err, "Failed to update status")
		return
	}
	h.succeed(w, r, user, audit.ActionUserToggle, target, "User status updated", actionResult{
		Data: newUserViews([]domain.User{updated})[0],
	})
}

func (h *handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RoleAdmin)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid user")
		return
	}

	target := strconv.FormatInt(id, 10)
	if err := h.API.Users.Delete(r.Context(), id); err != nil {
		h.failAction(w, r, user, audit.ActionUserDelete, target, err, "Failed to delete user")
		return
	}
	h.succeed(w, r, user, audit.ActionUserDelete, target, "User deleted", actionResult{})
}

func (h *handler) handleUnflagComment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RoleModerator, domain.RoleAdmin)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid comment")
		return
	}

	target := strconv.FormatInt(id, 10)
	comment, err := h.API.Comments.Unflag(r.Context(), id)
	if err != nil {
		h.failAction(w, r, user, audit.ActionCommentUnflag, target, err, "Failed to unflag comment")
		return
	}
	h.succeed(w, r, user, audit.ActionCommentUnflag, target, "Comment unflagged", actionResult{
		Data: newCommentViews([]domain.Comment{comment})[0],
	})
}

func (h *handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireViewer(w, r, domain.RoleModerator, domain.RoleAdmin)
	if !ok {
		return
	}
	id, valid := pathID(r)
	if !valid {
		h.invalid(w, "Invalid comment")
		return
	}

	target := strconv.FormatInt(id, 10)
	if err := h.API.Comments.Delete(r.Context(), id); err != nil {
		h.failAction(w, r, user, audit.ActionCommentDelete, target, err, "Failed to delete comment")
		return
	}
	h.succeed(w, r, user, audit.ActionCommentDelete, target, "Comment deleted", actionResult{})
}

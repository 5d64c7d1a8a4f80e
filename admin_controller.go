package mudradesk

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// RegisterAdminRoutes mounts the admin dashboard and the account
// lifecycle actions. Every handler runs behind the admin gate.
func RegisterAdminRoutes(app fiber.Router, opts ...AdminControllerOption) {
	controller := NewAdminController(opts...)

	app.Get(controller.Routes.Dashboard, controller.Dashboard)
	app.Post(controller.Routes.Approve, controller.Approve)
	app.Post(controller.Routes.Reject, controller.Reject)
	app.Post(controller.Routes.ToggleActive, controller.ToggleActive)
	app.Post(controller.Routes.Delete, controller.Delete)

	app.Get(controller.Routes.Profile, controller.ProfileShow)
	app.Post(controller.Routes.Profile, controller.ProfileUpdate)
}

type AdminControllerRoutes struct {
	Dashboard    string
	Approve      string
	Reject       string
	ToggleActive string
	Delete       string
	Profile      string
}

type AdminControllerViews struct {
	Dashboard string
	Profile   string
}

type AdminController struct {
	Logger   Logger
	Repo     RepositoryManager
	Gate     *Gate
	Sessions *CookieSessions
	Routes   *AdminControllerRoutes
	Views    *AdminControllerViews
}

type AdminControllerOption func(*AdminController) *AdminController

func NewAdminController(opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger: defLogger{},
		Routes: &AdminControllerRoutes{
			Dashboard:    "/admin",
			Approve:      "/admin/approve/:id",
			Reject:       "/admin/reject/:id",
			ToggleActive: "/admin/toggle-active/:id",
			Delete:       "/admin/delete/:id",
			Profile:      "/admin/profile",
		},
		Views: &AdminControllerViews{
			Dashboard: "admin_dashboard",
			Profile:   "admin_profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in admin controller...")
	}

	if c.Gate == nil {
		panic("Missing Gate in admin controller...")
	}

	if c.Sessions == nil {
		panic("Missing CookieSessions in admin controller...")
	}

	return c
}

func (a *AdminController) WithLogger(logger Logger) *AdminController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *AdminController) Dashboard(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	pending, err := a.Repo.Accounts().ListPending(c.Context())
	if err != nil {
		a.Logger.Error("admin list pending accounts", "error", err)
		Flash(c, FlashError, "Could not load pending accounts.")
	}

	all, err := a.Repo.Accounts().ListAll(c.Context(), false)
	if err != nil {
		a.Logger.Error("admin list accounts", "error", err)
		Flash(c, FlashError, "Could not load accounts.")
	}

	return renderView(c, a.Views.Dashboard, fiber.Map{
		"admin":    d.Account,
		"pending":  pending,
		"accounts": all,
	})
}

func (a *AdminController) Approve(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	account, ok := a.targetAccount(c)
	if !ok {
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	actor := adminActor(d)
	if _, err := a.Repo.Accounts().Approve(c.Context(), actor, account); err != nil {
		a.Logger.Error("admin approve account", "error", err, "id", account.ID)
		Flash(c, FlashError, "Could not approve account.")
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	Flash(c, FlashSuccess, "Account for "+account.DisplayName()+" approved.")
	return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
}

func (a *AdminController) Reject(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	account, ok := a.targetAccount(c)
	if !ok {
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	actor := adminActor(d)
	if err := a.Repo.Accounts().Reject(c.Context(), actor, account, WithTransitionReason("registration rejected")); err != nil {
		a.Logger.Error("admin reject account", "error", err, "id", account.ID)
		Flash(c, FlashError, "Could not reject account.")
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	Flash(c, FlashInfo, "Registration for "+account.DisplayName()+" rejected.")
	return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
}

// ToggleActive flips an account between active and deactivated.
func (a *AdminController) ToggleActive(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	account, ok := a.targetAccount(c)
	if !ok {
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	actor := adminActor(d)

	// The transition mutates account.Active in place, so the flash has
	// to branch on the state before the call.
	wasActive := account.Active

	var err error
	if wasActive {
		_, err = a.Repo.Accounts().Deactivate(c.Context(), actor, account)
	} else {
		_, err = a.Repo.Accounts().Reactivate(c.Context(), actor, account)
	}

	if err != nil {
		a.Logger.Error("admin toggle account", "error", err, "id", account.ID)
		Flash(c, FlashError, "Could not update account status.")
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	if wasActive {
		Flash(c, FlashInfo, "Account for "+account.DisplayName()+" deactivated.")
	} else {
		Flash(c, FlashSuccess, "Account for "+account.DisplayName()+" reactivated.")
	}

	return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
}

func (a *AdminController) Delete(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	account, ok := a.targetAccount(c)
	if !ok {
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	actor := adminActor(d)
	if err := a.Repo.Accounts().DeleteAccount(c.Context(), actor, account); err != nil {
		if errors.Is(err, ErrForbiddenTarget) {
			Flash(c, FlashError, "Cannot delete admin account.")
		} else {
			a.Logger.Error("admin delete account", "error", err, "id", account.ID)
			Flash(c, FlashError, "Could not delete account.")
		}
		return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
	}

	Flash(c, FlashInfo, "Account for "+account.DisplayName()+" deleted.")
	return c.Redirect(a.Routes.Dashboard, redirectStatus(c))
}

func (a *AdminController) ProfileShow(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	return renderView(c, a.Views.Profile, fiber.Map{
		"account":     d.Account,
		"super_admin": d.Session != nil && d.Session.SuperAdmin,
	})
}

// AdminProfilePayload is the profile form.
type AdminProfilePayload struct {
	BusinessName    string `form:"business_name" json:"business_name"`
	OwnerName       string `form:"owner_name" json:"owner_name"`
	Email           string `form:"email" json:"email"`
	Mobile          string `form:"mobile" json:"mobile"`
	BusinessAddress string `form:"business_address" json:"business_address"`
	GSTNumber       string `form:"gst_number" json:"gst_number"`
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

func (a *AdminController) ProfileUpdate(c *fiber.Ctx) error {
	d := a.Gate.RequireAdmin(c)
	if !d.Allowed() {
		return a.Gate.Apply(c, d)
	}

	// The env-credential super admin has no stored record to update.
	if d.Session != nil && d.Session.SuperAdmin {
		Flash(c, FlashInfo, "Super admin profile is configured via environment variables.")
		return c.Redirect(a.Routes.Profile, redirectStatus(c))
	}

	payload := new(AdminProfilePayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("profile parse payload", "error", err)
		Flash(c, FlashError, "Error parsing form")
		return c.Redirect(a.Routes.Profile, redirectStatus(c))
	}

	req := UpdateProfileMessage{
		AccountID:       d.Account.ID,
		BusinessName:    payload.BusinessName,
		OwnerName:       payload.OwnerName,
		Email:           payload.Email,
		Mobile:          payload.Mobile,
		BusinessAddress: payload.BusinessAddress,
		GSTNumber:       payload.GSTNumber,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
		ConfirmPassword: payload.ConfirmPassword,
	}

	updateProfile := NewUpdateProfileHandler(a.Repo).WithLogger(a.Logger)
	result, err := updateProfile.Execute(c.Context(), req)
	if err != nil {
		a.Logger.Error("profile update error", "error", err)

		if problems := PasswordProblems(err); len(problems) > 0 {
			for _, p := range problems {
				Flash(c, FlashError, p)
			}
			return c.Redirect(a.Routes.Profile, redirectStatus(c))
		}

		if errors.Is(err, ErrDuplicateEmail) {
			Flash(c, FlashError, "Email already registered.")
			return c.Redirect(a.Routes.Profile, redirectStatus(c))
		}

		if errors.Is(err, ErrPasswordConfirmation) {
			Flash(c, FlashError, "New passwords do not match.")
			return c.Redirect(a.Routes.Profile, redirectStatus(c))
		}

		Flash(c, FlashError, "Could not update profile.")
		return c.Redirect(a.Routes.Profile, redirectStatus(c))
	}

	// An email change invalidates the session subject; force re-login.
	if result.EmailChanged {
		a.Sessions.Clear(c)
		Flash(c, FlashSuccess, "Profile updated. Please log in with your new email.")
		return c.Redirect("/login", redirectStatus(c))
	}

	Flash(c, FlashSuccess, "Profile updated.")
	return c.Redirect(a.Routes.Profile, redirectStatus(c))
}

// targetAccount resolves the :id route param to a stored account,
// flashing the failure so callers only need to redirect.
func (a *AdminController) targetAccount(c *fiber.Ctx) (*Account, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		Flash(c, FlashError, "Invalid account id.")
		return nil, false
	}

	account, err := a.Repo.Accounts().GetAccount(c.Context(), id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			Flash(c, FlashError, "Account not found.")
		} else {
			a.Logger.Error("admin account lookup", "error", err, "id", id)
			Flash(c, FlashError, "Could not load account.")
		}
		return nil, false
	}

	return account, true
}

func adminActor(d GateDecision) ActorRef {
	actor := ActorRef{Type: "admin"}
	if d.Session != nil {
		actor.ID = d.Session.AccountID
	} else if d.Account != nil {
		actor.ID = d.Account.ID.String()
	}
	return actor
}

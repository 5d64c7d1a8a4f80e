package mudradesk

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts login, logout, registration and the
// pending-approval page.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Login, controller.LoginShow)
	app.Post(controller.Routes.Login, controller.LoginPost)

	app.Get(controller.Routes.Logout, controller.LogOut)

	app.Get(controller.Routes.Register, controller.RegistrationShow)
	app.Post(controller.Routes.Register, controller.RegistrationCreate)

	app.Get(controller.Routes.PendingApproval, controller.PendingApprovalShow)
}

type AuthControllerRoutes struct {
	Login           string
	Logout          string
	Register        string
	PendingApproval string
}

type AuthControllerViews struct {
	Login           string
	Register        string
	PendingApproval string
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Routes   *AuthControllerRoutes
	Views    *AuthControllerViews
	Auther   *Auther
	Sessions *CookieSessions
	Verifier GSTVerifier
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:           "/login",
			Logout:          "/logout",
			Register:        "/register",
			PendingApproval: "/pending-approval",
		},
		Views: &AuthControllerViews{
			Login:           "login",
			Register:        "register",
			PendingApproval: "pending_approval",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Sessions == nil {
		panic("Missing CookieSessions in auth controller...")
	}

	return c
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *AuthController) LoginShow(c *fiber.Ctx) error {
	return renderView(c, a.Views.Login, fiber.Map{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(
				&r.Email,
				validation.Required,
				is.Email,
			),
			validation.Field(
				&r.Password,
				validation.Required,
			),
		)
	}, "Invalid login request payload")
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return renderView(c, a.Views.Login, fiber.Map{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		return renderView(c, a.Views.Login, fiber.Map{
			"record":     payload,
			"validation": err.ValidationMap(),
		})
	}

	if a.Debug {
		a.Logger.Debug("login attempt %s", print.MaybePrettyJSON(payload))
	}

	result, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountPending):
			Flash(c, FlashInfo, msgPendingApproval)
			return c.Redirect(a.Routes.PendingApproval, redirectStatus(c))
		case errors.Is(err, ErrAccountDeactivated):
			Flash(c, FlashError, msgDeactivated)
			return c.Redirect(a.Routes.Login, redirectStatus(c))
		default:
			// Unknown email, bad password, store failures: one message.
			Flash(c, FlashError, "Invalid email or password.")
			return c.Redirect(a.Routes.Login, redirectStatus(c))
		}
	}

	a.Sessions.Write(c, result.Token)
	Flash(c, FlashSuccess, "Logged in successfully.")

	target := "/"
	if result.Account != nil && result.Account.Admin {
		target = "/admin"
	}

	return c.Redirect(target, redirectStatus(c))
}

func (a *AuthController) LogOut(c *fiber.Ctx) error {
	a.Sessions.Clear(c)
	Flash(c, FlashInfo, "You have been logged out.")
	return c.Redirect(a.Routes.Login, redirectStatus(c))
}

func (a *AuthController) RegistrationShow(c *fiber.Ctx) error {
	return renderView(c, a.Views.Register, fiber.Map{
		"errors": map[string]string{},
		"record": RegisterAccountMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	BusinessName    string `form:"business_name" json:"business_name"`
	OwnerName       string `form:"owner_name" json:"owner_name"`
	Email           string `form:"email" json:"email"`
	Mobile          string `form:"mobile" json:"mobile"`
	BusinessAddress string `form:"business_address" json:"business_address"`
	GSTNumber       string `form:"gst_number" json:"gst_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.BusinessName, validation.Required, validation.Length(1, 200)),
			validation.Field(&r.OwnerName, validation.Required, validation.Length(1, 200)),
			validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&r.Mobile, validation.Required, validation.By(ValidateIndianMobile)),
			validation.Field(&r.BusinessAddress, validation.Required),
			validation.Field(&r.Password, validation.Required),
			validation.Field(
				&r.ConfirmPassword,
				validation.Required,
				validation.By(ValidateStringEquals(r.Password)),
			),
		)
	}, "Invalid registration payload")
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register account parse payload", "error", err)
		Flash(c, FlashError, "Error parsing form")
		return c.Status(fiber.StatusBadRequest).Render(a.Views.Register, fiber.Map{
			"errors":   map[string]string{"form": "Failed to parse form"},
			"record":   payload,
			"messages": ConsumeFlashes(c),
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload", "error", err)
		return renderView(c, a.Views.Register, fiber.Map{
			"record":     payload,
			"validation": err.ValidationMap(),
		})
	}

	req := RegisterAccountMessage{
		BusinessName:    payload.BusinessName,
		OwnerName:       payload.OwnerName,
		Email:           payload.Email,
		Mobile:          payload.Mobile,
		BusinessAddress: payload.BusinessAddress,
		GSTNumber:       payload.GSTNumber,
		Password:        payload.Password,
	}

	registerAccount := NewRegisterAccountHandler(a.Repo, a.Verifier).WithLogger(a.Logger)
	if _, err := registerAccount.Execute(c.Context(), req); err != nil {
		a.Logger.Error("register account error", "error", err)

		if problems := PasswordProblems(err); len(problems) > 0 {
			for _, p := range problems {
				Flash(c, FlashError, p)
			}
			return renderView(c, a.Views.Register, fiber.Map{
				"record": payload,
			})
		}

		if errors.Is(err, ErrDuplicateEmail) {
			Flash(c, FlashError, "Email already registered.")
			return renderView(c, a.Views.Register, fiber.Map{
				"record": payload,
			})
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.TextCode == ErrVerificationFailed.TextCode {
			Flash(c, FlashError, "GST number could not be verified.")
			return renderView(c, a.Views.Register, fiber.Map{
				"record": payload,
			})
		}

		Flash(c, FlashError, "Registration failed. Please try again.")
		return renderView(c, a.Views.Register, fiber.Map{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	Flash(c, FlashSuccess, "Registration successful! Your account is pending admin approval.")
	return c.Redirect(a.Routes.PendingApproval, fiber.StatusSeeOther)
}

func (a *AuthController) PendingApprovalShow(c *fiber.Ctx) error {
	return renderView(c, a.Views.PendingApproval, fiber.Map{})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// renderView merges pending flash messages into every page render.
func renderView(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["messages"]; !ok {
		data["messages"] = ConsumeFlashes(c)
	}
	return c.Render(view, data)
}

package mudradesk

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// RegisterPageRoutes mounts the invoicing pages, the asset upload
// endpoints, and the JSON API. The shared-PDF download and the health
// check are the only routes outside the member gate.
func RegisterPageRoutes(app fiber.Router, opts ...PagesControllerOption) {
	controller := NewPagesController(opts...)

	app.Get("/", controller.Index)
	app.Get("/bill", controller.Bill)
	app.Get("/quotation", controller.Quotation)
	app.Get("/preview", controller.Preview)
	app.Get("/history", controller.History)
	app.Get("/quotation-history", controller.QuotationHistory)
	app.Get("/template", controller.TemplateEditor)

	app.Post("/upload-asset", controller.UploadAsset)
	app.Post("/remove-asset", controller.RemoveAsset)
	app.Get("/uploads/watermark/:filename", controller.WatermarkAsset)
	app.Get("/uploads/:filename", controller.ServeAsset)

	app.Post("/api/share-pdf", controller.SharePDF)
	app.Get("/share/:token", controller.SharedPDF)

	app.Post("/api/verify-gst", controller.VerifyGST)
	app.Get("/api/current-user", controller.CurrentUser)

	app.Get("/health", controller.Health)
}

type PagesControllerViews struct {
	Index            string
	Bill             string
	Quotation        string
	Preview          string
	History          string
	QuotationHistory string
	TemplateEditor   string
}

type PagesController struct {
	Logger   Logger
	Gate     *Gate
	Uploads  *UploadStore
	Verifier GSTVerifier
	Views    *PagesControllerViews
}

type PagesControllerOption func(*PagesController) *PagesController

func NewPagesController(opts ...PagesControllerOption) *PagesController {
	c := &PagesController{
		Logger: defLogger{},
		Views: &PagesControllerViews{
			Index:            "index",
			Bill:             "bill",
			Quotation:        "quotation",
			Preview:          "preview",
			History:          "history",
			QuotationHistory: "quotation_history",
			TemplateEditor:   "template_editor",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Gate == nil {
		panic("Missing Gate in pages controller...")
	}

	if c.Uploads == nil {
		panic("Missing UploadStore in pages controller...")
	}

	return c
}

func (p *PagesController) WithLogger(logger Logger) *PagesController {
	if logger != nil {
		p.Logger = logger
	}
	return p
}

func (p *PagesController) Index(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.Index)
}

func (p *PagesController) Bill(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.Bill)
}

func (p *PagesController) Quotation(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.Quotation)
}

func (p *PagesController) Preview(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.Preview)
}

func (p *PagesController) History(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.History)
}

func (p *PagesController) QuotationHistory(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.QuotationHistory)
}

func (p *PagesController) TemplateEditor(c *fiber.Ctx) error {
	return p.memberPage(c, p.Views.TemplateEditor)
}

func (p *PagesController) memberPage(c *fiber.Ctx, view string) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.Gate.Apply(c, d)
	}

	return renderView(c, view, fiber.Map{
		"account": d.Account,
	})
}

// assetPrefixes maps the form asset_type to the stored filename prefix.
var assetPrefixes = map[string]string{
	"logo":      "logo",
	"signature": "signature",
	"stamp":     "stamp",
}

// UploadAsset stores a logo, signature, or stamp image and returns its
// serving URL.
func (p *PagesController) UploadAsset(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.denyJSON(c, d)
	}

	assetType := c.FormValue("asset_type")
	prefix, ok := assetPrefixes[assetType]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown asset type",
		})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing file",
		})
	}

	name, err := p.Uploads.SaveImage(fh, prefix)
	if err != nil {
		p.Logger.Error("upload asset", "error", err, "type", assetType)
		return p.errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"filename": name,
		"url":      "/uploads/" + name,
	})
}

func (p *PagesController) RemoveAsset(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.denyJSON(c, d)
	}

	filename := c.FormValue("filename")
	if filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing filename",
		})
	}

	if err := p.Uploads.Remove(filename); err != nil {
		p.Logger.Error("remove asset", "error", err)
		return p.errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"removed": true})
}

func (p *PagesController) ServeAsset(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.Gate.Apply(c, d)
	}

	path, err := p.Uploads.ImagePath(c.Params("filename"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.SendFile(path)
}

// WatermarkAsset serves a grayscale rendition used as the invoice
// background watermark.
func (p *PagesController) WatermarkAsset(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.Gate.Apply(c, d)
	}

	data, err := p.Uploads.Watermark(c.Params("filename"))
	if err != nil {
		p.Logger.Debug("watermark asset", "error", err)
		return c.SendStatus(fiber.StatusNotFound)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}

// SharePDF stores an uploaded invoice PDF under a fresh unguessable
// token and returns the public download URL.
func (p *PagesController) SharePDF(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.denyJSON(c, d)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing file",
		})
	}

	token, err := p.Uploads.SaveSharedPDF(fh, NewShareToken())
	if err != nil {
		p.Logger.Error("share pdf", "error", err)
		return p.errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"url": "/share/" + token + ".pdf",
	})
}

// SharedPDF is public: anyone holding the link can download the
// invoice. The token space makes guessing impractical.
func (p *PagesController) SharedPDF(c *fiber.Ctx) error {
	token := c.Params("token")
	if len(token) > 4 && token[len(token)-4:] == ".pdf" {
		token = token[:len(token)-4]
	}

	path, err := p.Uploads.SharedPath(token)
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	return c.Download(path, "invoice.pdf")
}

func (p *PagesController) VerifyGST(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.denyJSON(c, d)
	}

	payload := struct {
		GSTNumber string `form:"gst_number" json:"gst_number"`
	}{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid payload",
		})
	}

	if p.Verifier == nil {
		return c.JSON(GSTResult{Valid: true})
	}

	result, err := p.Verifier.Verify(c.Context(), payload.GSTNumber)
	if err != nil {
		p.Logger.Error("verify gst", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "verification service unavailable",
		})
	}

	return c.JSON(result)
}

func (p *PagesController) CurrentUser(c *fiber.Ctx) error {
	d := p.Gate.RequireMember(c)
	if !d.Allowed() {
		return p.denyJSON(c, d)
	}

	account := d.Account
	return c.JSON(fiber.Map{
		"id":               account.ID,
		"email":            account.Email,
		"business_name":    account.BusinessName,
		"owner_name":       account.OwnerName,
		"business_address": account.BusinessAddress,
		"mobile":           account.Mobile,
		"gst_number":       account.GSTNumber,
		"gst_verified":     account.GSTVerified,
		"is_admin":         account.Admin,
		"status":           account.Status(),
	})
}

func (p *PagesController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// denyJSON is the API-shaped counterpart of Gate.Apply: no flash, no
// redirect, just a 401 with the denial message.
func (p *PagesController) denyJSON(c *fiber.Ctx, d GateDecision) error {
	if d.ClearSession {
		p.Gate.sessions.Clear(c)
	}

	msg := d.Message
	if msg == "" {
		msg = "unauthorized"
	}

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
	})
}

// errorJSON maps a rich error to its HTTP code, defaulting to 500.
func (p *PagesController) errorJSON(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal error"

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Code > 0 {
			status = richErr.Code
		}
		msg = richErr.Message
	}

	return c.Status(status).JSON(fiber.Map{"error": msg})
}

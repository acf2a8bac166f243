package echoapi

import (
	"bytes"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/report"
	"github.com/trezcool/ecole/storage/export"
)

const academicYearParam = "academic_year"

type reportApi struct {
	svc      *report.Service
	mailSvc  core.EmailService
	validate *validator.Validate
}

func registerReportAPI(ag *echo.Group, deps ServerDeps) {
	api := reportApi{
		svc:      deps.ReportSvc,
		mailSvc:  deps.MailSvc,
		validate: deps.Validate,
	}

	ag.GET("/enrollments/:id/bulletin", api.bulletin)
	ag.POST("/enrollments/:id/bulletin/email", api.emailBulletin, adminMiddleware())
	ag.GET("/rankings", api.rankings, adminMiddleware())
}

func (api *reportApi) bulletin(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	blt, err := api.svc.Bulletin(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "building bulletin")
	}
	return ctx.JSON(http.StatusOK, blt)
}

func (api *reportApi) rankings(ctx echo.Context) error {
	year := core.CleanString(ctx.QueryParam(academicYearParam))
	if year == "" {
		return core.NewFieldError(academicYearParam, "this field is required")
	}
	rankings, err := api.svc.Rankings(ctx.Request().Context(), year)
	if err != nil {
		return errors.Wrap(err, "ranking enrollments")
	}
	return ctx.JSON(http.StatusOK, rankings)
}

// emailBulletin sends the bulletin to the given address, with its lines attached as a parquet file.
func (api *reportApi) emailBulletin(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data BulletinEmailRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulletinEmailRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	blt, err := api.svc.Bulletin(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "building bulletin")
	}

	var buf bytes.Buffer
	if err = export.WriteResults(&buf, export.FromBulletin(blt)); err != nil {
		return errors.Wrap(err, "exporting bulletin")
	}
	msg := blt.EmailMessage(mail.Address{Name: data.Name, Address: data.Email})
	if err = msg.Attach(&buf, "bulletin-"+blt.Matricule+".parquet", "application/vnd.apache.parquet"); err != nil {
		return errors.Wrap(err, "attaching bulletin")
	}
	api.mailSvc.SendMessages(msg)

	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The bulletin will be sent shortly."})
}

type BulletinEmailRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"required,email"`
}

func (br *BulletinEmailRequest) Validate(validate *validator.Validate) error {
	br.Name = core.CleanString(br.Name)
	br.Email = core.CleanString(br.Email, true /* lower */)
	return validate.Struct(br)
}

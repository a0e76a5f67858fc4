package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/payment"
)

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	svc *payment.Service,
	validate *validator.Validate,
) {
	api := paymentApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/payments", authed...)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.POST("/:id/receipt", api.sendReceipt)
}

// Handlers

func (api *paymentApi) query(ctx echo.Context) error {
	payments, total, err := api.svc.Query(ctx.Request().Context(), bindSearch(ctx))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, PaymentsResponse{Payments: payments, Total: total})
}

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// sendReceipt emails the receipt to the signed-in staff member.
func (api *paymentApi) sendReceipt(ctx echo.Context) error {
	m, err := getContextMachine(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context machine")
	}
	sess, ok := m.Session()
	if !ok {
		return errSessionExpired
	}

	if _, err := api.svc.SendReceipt(ctx.Request().Context(), ctx.Param("id"), mail.Address{Address: sess.Email}); err != nil {
		return errors.Wrap(err, "sending receipt")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The receipt has been sent to " + sess.Email + "."})
}

type PaymentsResponse struct {
	Payments []payment.Payment `json:"payments"`
	Total    float64           `json:"total"`
}

package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multibase"

	"github.com/ondrix/vesting-actors/actors/abi"
	"github.com/ondrix/vesting-actors/support/vm"
)

var log = logging.Logger("api")

// APIError is returned by handlers to answer with a status other than 500.
type APIError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e APIError) Error() string {
	return e.Message
}

func ErrorHandlerFunc(ctx *fiber.Ctx, err error) error {
	switch e := err.(type) {
	case APIError:
		if e.Code != fiber.StatusNotFound {
			log.Infow("request failed", "code", e.Code, "path", ctx.Path(), "queries", ctx.Queries(),
				"error", strings.ReplaceAll(e.Message, "\n", "\\n"))
		}
		return ctx.Status(e.Code).JSON(e)
	case *fiber.Error:
		return ctx.Status(e.Code).JSON(APIError{Code: e.Code, Message: e.Message})
	default:
		log.Errorw("internal error", "path", ctx.Path(), "queries", ctx.Queries(), "error", err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(APIError{Message: "internal server error: " + err.Error()})
	}
}

// Server exposes a ledger over HTTP.
type Server struct {
	v *vm.VM
}

// NewApp builds the HTTP application serving v.
func NewApp(v *vm.VM) *fiber.App {
	s := &Server{v: v}
	app := fiber.New(fiber.Config{
		AppName:               "vestd",
		ErrorHandler:          ErrorHandlerFunc,
		DisableStartupMessage: true,
	})

	app.Use("/v1/", func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debugw("request", "method", c.Method(), "path", c.Path(), "took", time.Since(start))
		return err
	})

	app.Get("/v1/health", s.GetHealth)
	app.Get("/v1/derive", s.GetDerive)
	app.Get("/v1/vestings", s.GetVestings)
	app.Get("/v1/vestings/:address", s.GetVesting)
	app.Get("/v1/balances/:address", s.GetBalance)
	app.Post("/v1/transactions", s.PostTransaction)
	return app
}

type HealthResponse struct {
	OK        bool          `json:"ok"`
	Now       abi.Timestamp `json:"now"`
	StateRoot string        `json:"state_root"`
}

func (s *Server) GetHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{OK: true, Now: s.v.Now(), StateRoot: s.v.StateRoot().String()})
}

type BalanceResponse struct {
	Address abi.Address     `json:"address"`
	Amount  abi.TokenAmount `json:"amount"`
}

func (s *Server) GetBalance(c *fiber.Ctx) error {
	addr, err := paramAddress(c, "address")
	if err != nil {
		return err
	}
	amt, err := s.v.TokenBalance(addr)
	if err != nil {
		return APIError{Code: fiber.StatusNotFound, Message: err.Error()}
	}
	return c.JSON(BalanceResponse{Address: addr, Amount: amt})
}

type TransactionRequest struct {
	// Multibase-encoded transaction bytes.
	Tx string `json:"tx"`
}

// PostTransaction applies a signed transaction. Aborted transactions are still answered with 200
// and their receipt.
func (s *Server) PostTransaction(c *fiber.Ctx) error {
	var req TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return APIError{Code: fiber.StatusUnprocessableEntity, Message: err.Error()}
	}
	_, raw, err := multibase.Decode(req.Tx)
	if err != nil {
		return APIError{Code: fiber.StatusUnprocessableEntity, Message: "tx: " + err.Error()}
	}
	tx, err := vm.DecodeTransaction(raw)
	if err != nil {
		return APIError{Code: fiber.StatusUnprocessableEntity, Message: err.Error()}
	}
	return c.JSON(s.v.ApplyTransaction(tx))
}

func paramAddress(c *fiber.Ctx, name string) (abi.Address, error) {
	addr, err := abi.ParseAddress(c.Params(name))
	if err != nil {
		return abi.Undef, APIError{Code: fiber.StatusUnprocessableEntity, Message: err.Error()}
	}
	return addr, nil
}

func queryAddress(c *fiber.Ctx, name string) (abi.Address, bool, error) {
	text := c.Query(name)
	if text == "" {
		return abi.Undef, false, nil
	}
	addr, err := abi.ParseAddress(text)
	if err != nil {
		return abi.Undef, false, APIError{Code: fiber.StatusUnprocessableEntity, Message: name + ": " + err.Error()}
	}
	return addr, true, nil
}

func queryUint(c *fiber.Ctx, name string) (uint64, bool, error) {
	text := c.Query(name)
	if text == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, false, APIError{Code: fiber.StatusUnprocessableEntity, Message: name + ": " + err.Error()}
	}
	return n, true, nil
}

// queryTimestamp reads a non-negative unix timestamp that fits the ledger clock.
func queryTimestamp(c *fiber.Ctx, name string) (abi.Timestamp, bool, error) {
	text := c.Query(name)
	if text == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false, APIError{Code: fiber.StatusUnprocessableEntity, Message: name + ": " + err.Error()}
	}
	if n < 0 {
		return 0, false, APIError{Code: fiber.StatusUnprocessableEntity, Message: name + ": negative timestamp"}
	}
	return abi.Timestamp(n), true, nil
}

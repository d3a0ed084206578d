package registry

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerpay/ledgerpay/internal/auth"
	"github.com/ledgerpay/ledgerpay/internal/middleware"
	"github.com/ledgerpay/ledgerpay/internal/transfer"
	"github.com/ledgerpay/ledgerpay/internal/wallet"
)

// Handler exposes wallet endpoints over HTTP.
type Handler struct {
	registry *Registry
	tokens   *auth.Service
}

// NewHandler constructs a wallet handler.
func NewHandler(registry *Registry, tokens *auth.Service) *Handler {
	return &Handler{registry: registry, tokens: tokens}
}

type createWalletRequest struct {
	Password string `json:"password"`
}

type accessWalletRequest struct {
	WalletID string `json:"wallet_id"`
	Password string `json:"password"`
}

type transferRequest struct {
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Create provisions a new wallet and returns an access token for it.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	w, err := h.registry.CreateWallet(c.UserContext(), req.Password)
	if err != nil {
		return mapError(err)
	}
	token, expiresIn, err := h.tokens.IssueToken(w.ID())
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"wallet_id":  w.ID(),
		"token":      token,
		"expires_in": expiresIn,
	})
}

// Access exchanges wallet credentials for an access token.
func (h *Handler) Access(c *fiber.Ctx) error {
	var req accessWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	id, err := uuid.Parse(req.WalletID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}

	w, err := h.registry.AccessWallet(c.UserContext(), id, req.Password)
	if err != nil {
		return mapError(err)
	}
	token, expiresIn, err := h.tokens.IssueToken(w.ID())
	if err != nil {
		return mapError(err)
	}

	return c.JSON(fiber.Map{
		"wallet_id":  w.ID(),
		"token":      token,
		"expires_in": expiresIn,
	})
}

// Balance returns a consistent balance reading for the wallet.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id, err := authorizedWalletID(c)
	if err != nil {
		return err
	}

	w, err := h.registry.Lookup(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	snapshot, err := w.BalanceSnapshot()
	if err != nil {
		return mapError(err)
	}
	return c.JSON(balanceJSON(snapshot))
}

// Ledger returns a consistent snapshot of the wallet's transaction history.
func (h *Handler) Ledger(c *fiber.Ctx) error {
	id, err := authorizedWalletID(c)
	if err != nil {
		return err
	}

	w, err := h.registry.Lookup(c.UserContext(), id)
	if err != nil {
		return mapError(err)
	}
	snapshot, err := w.LedgerSnapshot()
	if err != nil {
		return mapError(err)
	}

	entries := make([]transfer.Record, 0, len(snapshot.Entries))
	for _, t := range snapshot.Entries {
		entries = append(entries, t.Record())
	}
	return c.JSON(fiber.Map{
		"transfers": entries,
		"timestamp": snapshot.Timestamp.UnixMilli(),
	})
}

// Transfer sends money from the authenticated wallet to another wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	id, err := authorizedWalletID(c)
	if err != nil {
		return err
	}

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	destination, err := uuid.Parse(req.DestinationWalletID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid destination wallet id")
	}

	receipt, err := h.registry.SendMoney(c.UserContext(), id, destination, req.Amount)
	if err != nil {
		return mapError(err)
	}

	settledAt, _ := receipt.Transfer.ValidatedAt()
	return c.JSON(fiber.Map{
		"transfer_id":         receipt.Transfer.ID(),
		"recipient_wallet_id": receipt.Transfer.Recipient(),
		"amount":              receipt.Transfer.Amount(),
		"remaining_balance":   receipt.RemainingBalance,
		"timestamp":           settledAt.UnixMilli(),
	})
}

// Deposit credits the authenticated wallet from the bank wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	id, err := authorizedWalletID(c)
	if err != nil {
		return err
	}

	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	snapshot, err := h.registry.DepositMoney(c.UserContext(), id, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(balanceJSON(snapshot))
}

// authorizedWalletID parses the wallet id from the path and requires it to
// match the wallet the bearer token was issued for.
func authorizedWalletID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("walletID"))
	if err != nil {
		return uuid.Nil, fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	tokenID, _ := c.Locals(middleware.WalletIDKey).(string)
	if tokenID != id.String() {
		return uuid.Nil, fiber.NewError(http.StatusForbidden, "token does not grant access to this wallet")
	}
	return id, nil
}

func balanceJSON(snapshot wallet.BalanceSnapshot) fiber.Map {
	return fiber.Map{
		"wallet_id": snapshot.WalletID,
		"balance":   snapshot.Balance,
		"timestamp": snapshot.Timestamp.UnixMilli(),
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, wallet.ErrInvalidArgument),
		errors.Is(err, transfer.ErrBadRecord),
		errors.Is(err, transfer.ErrNotParty):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrConflict), errors.Is(err, transfer.ErrAlreadyValidated):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

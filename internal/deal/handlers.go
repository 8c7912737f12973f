package deal

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-dealdesk/internal/common"
	"github.com/noah-isme/backend-dealdesk/internal/pricing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler exposes the deal session endpoints.
type Handler struct {
	Service *Service
}

type factCustomer struct {
	Name      string `json:"name"`
	Employees int    `json:"employees" validate:"gte=0"`
	Segment   string `json:"segment"`
	Industry  string `json:"industry"`
	DealType  string `json:"dealType"`
}

type factProduct struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity" validate:"gte=0"`
	UnitPrice       float64 `json:"unitPrice" validate:"gte=0"`
	Category        string  `json:"category"`
	ProductCategory string  `json:"productCategory"`
}

type factSpecial struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Rate float64 `json:"rate" validate:"gte=0,lte=1"`
}

type factPayload struct {
	Customer         *factCustomer `json:"customer"`
	Products         []factProduct `json:"products" validate:"omitempty,dive"`
	Term             *int          `json:"term" validate:"omitempty,gte=1,lte=10"`
	SpecialDiscounts []factSpecial `json:"specialDiscounts" validate:"omitempty,dive"`
}

type dealResponse struct {
	Version int64 `json:"version"`
	Deal    Deal  `json:"deal"`
}

// ApplyFacts handles POST /api/v1/deals/{dealID}/facts.
func (h *Handler) ApplyFacts(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "deal service not configured", nil)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	var body factPayload
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := validate.Struct(body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid fact payload", validationDetails(err))
		return
	}

	d, version, err := h.Service.ApplyFacts(r.Context(), id, toFacts(body))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dealResponse{Version: version, Deal: d}})
}

// Get handles GET /api/v1/deals/{dealID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "deal service not configured", nil)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	d, version, err := h.Service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dealResponse{Version: version, Deal: d}})
}

// Reset handles POST /api/v1/deals/{dealID}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "deal service not configured", nil)
		return
	}
	id, ok := dealID(w, r)
	if !ok {
		return
	}
	d, err := h.Service.Reset(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dealResponse{Version: 0, Deal: d}})
}

func dealID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "dealID"))
	if id == "" || len(id) > 128 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "dealID must be 1-128 characters", nil)
		return "", false
	}
	return id, true
}

func toFacts(body factPayload) Facts {
	facts := Facts{Term: body.Term}
	if body.Customer != nil {
		facts.Customer = &Customer{
			Name:      strings.TrimSpace(body.Customer.Name),
			Employees: body.Customer.Employees,
			Segment:   strings.TrimSpace(body.Customer.Segment),
			Industry:  strings.TrimSpace(body.Customer.Industry),
			DealType:  strings.TrimSpace(body.Customer.DealType),
		}
	}
	if body.Products != nil {
		facts.Products = make([]ProductFact, 0, len(body.Products))
		for _, p := range body.Products {
			facts.Products = append(facts.Products, ProductFact{
				ID:              strings.TrimSpace(p.ID),
				Name:            strings.TrimSpace(p.Name),
				Quantity:        p.Quantity,
				UnitPrice:       p.UnitPrice,
				Category:        strings.TrimSpace(p.Category),
				ProductCategory: strings.TrimSpace(p.ProductCategory),
			})
		}
	}
	if body.SpecialDiscounts != nil {
		facts.SpecialDiscounts = make([]pricing.SpecialDiscount, 0, len(body.SpecialDiscounts))
		for _, sd := range body.SpecialDiscounts {
			facts.SpecialDiscounts = append(facts.SpecialDiscounts, pricing.SpecialDiscount{
				Type: strings.TrimSpace(sd.Type),
				Name: strings.TrimSpace(sd.Name),
				Rate: sd.Rate,
			})
		}
	}
	return facts
}

func validationDetails(err error) any {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make([]map[string]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, map[string]string{"field": fe.Namespace(), "rule": fe.Tag()})
	}
	return details
}

package beckn

// Wire types for Beckn catalog and order payloads. Upstream platforms omit
// fields freely, so everything optional is a pointer or zero-value-safe and
// callers go through the nil-safe helpers below.

// CatalogResponse is the aggregate body returned by the BAP client for every
// action: a list of per-BPP callback envelopes. Upstream sometimes embeds a
// top-level error description instead of responses.
type CatalogResponse struct {
	Responses []CallbackEnvelope `json:"responses"`
	Error     string             `json:"error,omitempty"`
}

type CallbackEnvelope struct {
	Context *Context         `json:"context,omitempty"`
	Message *CallbackMessage `json:"message,omitempty"`
}

type CallbackMessage struct {
	Catalog *Catalog `json:"catalog,omitempty"`
	Order   *Order   `json:"order,omitempty"`
}

type Catalog struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
	Providers  []Provider  `json:"providers,omitempty"`
}

type Provider struct {
	ID           string        `json:"id,omitempty"`
	Descriptor   *Descriptor   `json:"descriptor,omitempty"`
	Locations    []Location    `json:"locations,omitempty"`
	Items        []Item        `json:"items,omitempty"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
}

type Descriptor struct {
	Name        string  `json:"name,omitempty"`
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description,omitempty"`
	ShortDesc   string  `json:"short_desc,omitempty"`
	LongDesc    string  `json:"long_desc,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

type Image struct {
	URL string `json:"url,omitempty"`
}

type Item struct {
	ID         string      `json:"id,omitempty"`
	Descriptor *Descriptor `json:"descriptor,omitempty"`
	Price      *Price      `json:"price,omitempty"`
	Quantity   *Quantity   `json:"quantity,omitempty"`
	Tags       []Tag       `json:"tags,omitempty"`
}

type Price struct {
	Value    string `json:"value,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type Quantity struct {
	Measure   *Measure        `json:"measure,omitempty"`
	Selected  *QuantityDetail `json:"selected,omitempty"`
	Available *QuantityDetail `json:"available,omitempty"`
}

type QuantityDetail struct {
	Count   int      `json:"count,omitempty"`
	Measure *Measure `json:"measure,omitempty"`
}

type Measure struct {
	Value string `json:"value,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

type Tag struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
	List       []TagEntry  `json:"list,omitempty"`
}

type TagEntry struct {
	Descriptor *Descriptor `json:"descriptor,omitempty"`
	Value      string      `json:"value,omitempty"`
}

type Fulfillment struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Customer map[string]any `json:"customer,omitempty"`
}

type Location struct {
	ID      string `json:"id,omitempty"`
	GPS     string `json:"gps,omitempty"`
	Address any    `json:"address,omitempty"`
}

type Order struct {
	ID           string        `json:"id,omitempty"`
	Status       string        `json:"status,omitempty"`
	Provider     *Provider     `json:"provider,omitempty"`
	Items        []Item        `json:"items,omitempty"`
	Fulfillments []Fulfillment `json:"fulfillments,omitempty"`
	Quote        *Quote        `json:"quote,omitempty"`
}

type Quote struct {
	Price *Price `json:"price,omitempty"`
	TTL   string `json:"ttl,omitempty"`
}

/* ------------------------------ nil-safe access ----------------------------- */

// name returns the descriptor name, or def when absent.
func (d *Descriptor) name(def string) string {
	if d == nil || d.Name == "" {
		return def
	}
	return d.Name
}

func (d *Descriptor) shortDesc() string {
	if d == nil {
		return ""
	}
	return d.ShortDesc
}

func (d *Descriptor) longDesc() string {
	if d == nil {
		return ""
	}
	return d.LongDesc
}

func (d *Descriptor) code() string {
	if d == nil {
		return ""
	}
	return d.Code
}

// label is the human-readable key used for tag flattening: the description
// when present, else the code.
func (d *Descriptor) label() string {
	if d == nil {
		return ""
	}
	if d.Description != "" {
		return d.Description
	}
	return d.Code
}

func (d *Descriptor) firstImageURL() string {
	if d == nil || len(d.Images) == 0 {
		return ""
	}
	return d.Images[0].URL
}

func (p *Price) value(def string) string {
	if p == nil || p.Value == "" {
		return def
	}
	return p.Value
}

func (p *Price) currency(def string) string {
	if p == nil || p.Currency == "" {
		return def
	}
	return p.Currency
}

func (p *Provider) firstFulfillmentID() string {
	if p == nil || len(p.Fulfillments) == 0 {
		return ""
	}
	return p.Fulfillments[0].ID
}

package domain

// CartLine is one selected product. Lines are keyed by ProductID: a cart never
// holds two lines for the same product.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the ordered set of lines held per device or, once authenticated,
// per user.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Line returns the line for productID, if present.
func (c Cart) Line(productID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// SetLine inserts or replaces the line for line.ProductID, keeping positions
// of existing lines stable.
func (c *Cart) SetLine(line CartLine) {
	for i, l := range c.Lines {
		if l.ProductID == line.ProductID {
			c.Lines[i] = line
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// RemoveLine drops the line for productID. Removing an absent line is a no-op.
func (c *Cart) RemoveLine(productID string) {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

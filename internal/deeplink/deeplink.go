// Package deeplink builds the messaging links shoppers use to contact the
// business about a product or to send their cart as an order.
package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"minimarket/internal/domain"
)

const baseURL = "https://wa.me/"

var (
	ErrNoPhone   = errors.New("no contact number configured")
	ErrEmptyCart = errors.New("cart is empty")
)

// ProductInquiry links to a chat asking about product
func ProductInquiry(phone string, product domain.Product) (string, error) {
	text := fmt.Sprintf("Hello! I'm interested in %s (%s).", product.Name, money(product.Price))
	if product.Status == domain.StatusOutOfStock {
		text += " Will it be back in stock soon?"
	} else {
		text += " Is it available?"
	}
	return link(phone, text)
}

// CartCheckout links to a chat carrying the cart as an order, one line
// per item followed by the total
func CartCheckout(phone string, items []domain.CartItem, total float64) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	var b strings.Builder
	b.WriteString("Hello! I'd like to order:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %d x %s: %s\n", item.Quantity, item.Name, money(item.Subtotal()))
	}
	fmt.Fprintf(&b, "Total: %s", money(total))
	return link(phone, b.String())
}

func link(phone, text string) (string, error) {
	digits := Digits(phone)
	if digits == "" {
		return "", ErrNoPhone
	}
	return baseURL + digits + "?text=" + url.QueryEscape(text), nil
}

// Digits strips everything but digits from a phone number, which is the
// form the link expects
func Digits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", domain.RoundPrice(v))
}

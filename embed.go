package sitekit

import "embed"

// BuiltinSections contains the section templates shipped with sitekit:
// nav, hero, about, feature-grid, testimonial-grid, cta-banner,
// contact-form, newsletter-signup, faq-item and footer.
//
//go:embed sections/*.yaml
var BuiltinSections embed.FS

// EmbeddedAssets contains static assets shipped with the framework:
// sitekit-forms.js
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

// FormsScript is the public path of the form runtime in served and emitted
// sites.
const FormsScript = "/public/sitekit-forms.js"

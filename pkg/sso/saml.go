package sso

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/x509"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/tenantgate/tenantgate/pkg/auth"
)

const (
	samlProtocolNS  = "urn:oasis:names:tc:SAML:2.0:protocol"
	samlAssertionNS = "urn:oasis:names:tc:SAML:2.0:assertion"
	samlPostBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
)

// SAMLProvider implements SP-initiated SAML with the redirect binding on the
// request leg and the POST binding on the response leg. When the tenant's
// config carries the IdP signing certificate the response signature is
// validated; without one the assertion is taken on trust, which is only
// acceptable in development setups.
type SAMLProvider struct {
	configs auth.SSOConfigStore
	baseURL string
}

// NewSAMLProvider creates the SAML provider. baseURL is the externally
// visible origin used to derive the ACS and SP entity ID when the tenant
// config leaves them unset.
func NewSAMLProvider(configs auth.SSOConfigStore, baseURL string) *SAMLProvider {
	return &SAMLProvider{
		configs: configs,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Kind implements Provider
func (p *SAMLProvider) Kind() auth.ProviderKind {
	return auth.ProviderSAML
}

func (p *SAMLProvider) acsURL(config *auth.SSOConfig) string {
	if config.SAMLACSURL != "" {
		return config.SAMLACSURL
	}
	return p.baseURL + "/sso/saml/callback"
}

func (p *SAMLProvider) spEntityID(config *auth.SSOConfig) string {
	if config.SAMLSPEntityID != "" {
		return config.SAMLSPEntityID
	}
	return p.baseURL + "/sso/saml/metadata"
}

// BeginLogin implements Provider. The AuthnRequest is raw-deflated,
// base64-encoded and attached to the IdP SSO URL as the SAMLRequest query
// parameter per the HTTP-Redirect binding.
func (p *SAMLProvider) BeginLogin(ctx context.Context, tenant *auth.Tenant) (string, error) {
	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderSAML)
	if err != nil {
		return "", err
	}
	if config.SAMLSSOURL == "" {
		return "", auth.ErrProviderNotConfigured(auth.ProviderSAML)
	}

	request, err := p.buildAuthnRequest(config)
	if err != nil {
		return "", err
	}

	var deflated bytes.Buffer
	writer, err := flate.NewWriter(&deflated, flate.DefaultCompression)
	if err != nil {
		return "", err
	}
	if _, err := writer.Write(request); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	encoded := base64.StdEncoding.EncodeToString(deflated.Bytes())
	separator := "?"
	if strings.Contains(config.SAMLSSOURL, "?") {
		separator = "&"
	}
	return config.SAMLSSOURL + separator + "SAMLRequest=" + url.QueryEscape(encoded), nil
}

func (p *SAMLProvider) buildAuthnRequest(config *auth.SSOConfig) ([]byte, error) {
	doc := etree.NewDocument()

	request := doc.CreateElement("samlp:AuthnRequest")
	request.CreateAttr("xmlns:samlp", samlProtocolNS)
	request.CreateAttr("xmlns:saml", samlAssertionNS)
	request.CreateAttr("ID", "_"+uuid.NewString())
	request.CreateAttr("Version", "2.0")
	request.CreateAttr("IssueInstant", time.Now().UTC().Format(time.RFC3339))
	request.CreateAttr("ProtocolBinding", samlPostBinding)
	request.CreateAttr("AssertionConsumerServiceURL", p.acsURL(config))

	issuer := request.CreateElement("saml:Issuer")
	issuer.SetText(p.spEntityID(config))

	return doc.WriteToBytes()
}

// HandleCallback implements Provider
func (p *SAMLProvider) HandleCallback(ctx context.Context, tenant *auth.Tenant, r *http.Request) (*Identity, error) {
	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderSAML)
	if err != nil {
		return nil, err
	}

	encoded := r.FormValue("SAMLResponse")
	if encoded == "" {
		return nil, auth.NewError(auth.CodeMissingResponse, "no SAMLResponse in callback request")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, auth.WrapError(auth.CodeInvalidResponse, "SAMLResponse is not valid base64", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, auth.WrapError(auth.CodeInvalidResponse, "SAMLResponse is not valid XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, auth.NewError(auth.CodeInvalidResponse, "SAMLResponse document is empty")
	}

	if config.SAMLCertificate != "" {
		root, err = p.validateSignature(root, config.SAMLCertificate)
		if err != nil {
			return nil, err
		}
	}

	email := nameIDText(root)
	if email == "" {
		return nil, auth.NewError(auth.CodeInvalidResponse, "SAMLResponse carries no NameID")
	}

	return &Identity{
		Email:    email,
		Provider: auth.ProviderSAML,
	}, nil
}

// validateSignature verifies the enveloped XML signature against the IdP
// certificate and returns the validated subtree.
func (p *SAMLProvider) validateSignature(root *etree.Element, certificate string) (*etree.Element, error) {
	cert, err := certificateFromPEM(certificate)
	if err != nil {
		return nil, auth.WrapError(auth.CodeInvalidResponse, "invalid IdP certificate", err)
	}

	certStore := &dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	}
	validated, err := dsig.NewDefaultValidationContext(certStore).Validate(root)
	if err != nil {
		return nil, auth.WrapError(auth.CodeInvalidSignature, "SAMLResponse signature validation failed", err)
	}
	return validated, nil
}

func nameIDText(root *etree.Element) string {
	for _, element := range root.FindElements("//NameID") {
		if text := strings.TrimSpace(element.Text()); text != "" {
			return text
		}
	}
	return ""
}

// Metadata renders the SP EntityDescriptor served to IdP administrators
func (p *SAMLProvider) Metadata(ctx context.Context, tenant *auth.Tenant) ([]byte, error) {
	config, err := configFor(ctx, p.configs, tenant.ID, auth.ProviderSAML)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	descriptor := doc.CreateElement("md:EntityDescriptor")
	descriptor.CreateAttr("xmlns:md", "urn:oasis:names:tc:SAML:2.0:metadata")
	descriptor.CreateAttr("entityID", p.spEntityID(config))

	spDescriptor := descriptor.CreateElement("md:SPSSODescriptor")
	spDescriptor.CreateAttr("protocolSupportEnumeration", samlProtocolNS)
	spDescriptor.CreateAttr("AuthnRequestsSigned", "false")
	spDescriptor.CreateAttr("WantAssertionsSigned", "true")

	acs := spDescriptor.CreateElement("md:AssertionConsumerService")
	acs.CreateAttr("Binding", samlPostBinding)
	acs.CreateAttr("Location", p.acsURL(config))
	acs.CreateAttr("index", "0")
	acs.CreateAttr("isDefault", "true")

	doc.Indent(2)
	return doc.WriteToBytes()
}

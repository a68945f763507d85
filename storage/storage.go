package storage

import "github.com/ruteri/coldwallet-ceremony/interfaces"

// contentTypes lists every namespace a backend must provide.
var contentTypes = []interfaces.ContentType{
	interfaces.RequestType,
	interfaces.ResponseType,
	interfaces.ContributionType,
}

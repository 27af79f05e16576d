// Package phpserialize produces PHP serialize()-compatible byte streams for
// string maps. The legacy payment provider signs its webhooks over this
// exact representation, so the encoding is provider-mandated rather than an
// interchange format of our choosing.
package phpserialize

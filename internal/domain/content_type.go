package domain

// ContentType is the fixed vocabulary of item content kinds the item
// updater accepts. Unknown values fail validation (§4.6 step 2).
type ContentType string

const (
	ContentTypeNote          ContentType = "Note"
	ContentTypeTag           ContentType = "Tag"
	ContentTypeSmartView     ContentType = "SmartView"
	ContentTypeUserPreferences ContentType = "UserPreferences"
	ContentTypeExtension     ContentType = "Extension"
	ContentTypeExtensionRepo ContentType = "SN|Extension|Repo"
	ContentTypeTheme         ContentType = "SN|Theme"
	ContentTypeComponent     ContentType = "SN|Component"
	ContentTypeEditor        ContentType = "SN|Editor"
	ContentTypeActionsExt    ContentType = "SN|Component|ActionsExtension"
	ContentTypeFile          ContentType = "SN|FileSafe|FileMetadata"
	ContentTypePrivileges    ContentType = "SN|Privileges"
	ContentTypeVaultKey      ContentType = "SN|ItemsKey"
)

var knownContentTypes = map[ContentType]bool{
	ContentTypeNote:            true,
	ContentTypeTag:             true,
	ContentTypeSmartView:       true,
	ContentTypeUserPreferences: true,
	ContentTypeExtension:       true,
	ContentTypeExtensionRepo:   true,
	ContentTypeTheme:           true,
	ContentTypeComponent:       true,
	ContentTypeEditor:          true,
	ContentTypeActionsExt:      true,
	ContentTypeFile:            true,
	ContentTypePrivileges:      true,
	ContentTypeVaultKey:        true,
}

// ValidContentType reports whether raw is part of the known vocabulary.
func ValidContentType(raw string) bool {
	return knownContentTypes[ContentType(raw)]
}
